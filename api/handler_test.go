package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"healthscreen/catalog"
	"healthscreen/config"
	"healthscreen/database"
	"healthscreen/models"
	"healthscreen/repository"
	"healthscreen/services"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	router  *gin.Engine
	handler *APIHandler
	quota   repository.QuotaRepository
}

func newTestServer(t *testing.T, guestQuota int) *testServer {
	t.Helper()
	return newTestServerWithChat(t, guestQuota, nil)
}

// newTestServerWithChat wires chatClient into the chat service; nil leaves chat disabled.
func newTestServerWithChat(t *testing.T, guestQuota int, chatClient *openai.Client) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	log := zap.NewNop()
	cat := catalog.Default()
	resultRepo := repository.NewResultRepository(db, log)
	guestRepo := repository.NewGuestResultRepository(0)
	planRepo := repository.NewPlanRepository(db, log)
	quotaRepo := repository.NewQuotaRepository(db, log)

	assessments := services.NewAssessmentService(cat, repository.NewSessionRepository(log), resultRepo, guestRepo, services.NewLocalAnalysisClient(), log)
	chat := services.NewChatService(chatClient, config.ChatConfig{Model: "test"}, repository.NewChatRepository(), resultRepo, log)
	plans := services.NewPlanService(planRepo, resultRepo, log)
	dashboard := services.NewDashboardService(cat, resultRepo, guestRepo, planRepo, log)

	h := NewAPIHandler(cat, quotaRepo, assessments, chat, plans, dashboard, Options{
		DefaultLanguage: models.LanguageEnglish,
		GuestChatQuota:  guestQuota,
	}, log)
	r := gin.New()
	h.RegisterRoutes(r)
	return &testServer{router: r, handler: h, quota: quotaRepo}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "text/event-stream" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestInitHandler(t *testing.T) {
	s := newTestServer(t, 5)

	t.Run("New guest", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/init?lang=th", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[models.InitResponse](t, env.Data)
		assert.Equal(t, "guest", got.UserType)
		assert.Regexp(t, `^guest_[0-9a-f-]{36}$`, got.UserID)
		assert.Equal(t, models.LanguageThai, got.Language)
		assert.Equal(t, 5, got.RemainingQuota)
		assert.Len(t, got.RiskLevels, 4)
		assert.NotEmpty(t, got.Questionnaires)
	})

	t.Run("Guest quota and hot reload", func(t *testing.T) {
		_, err := s.quota.IncrementQuota("guest_abc")
		require.NoError(t, err)
		s.handler.SetGuestChatQuota(3)

		_, env := s.do(t, http.MethodGet, "/api/init?userID=guest_abc", nil)
		got := decode[models.InitResponse](t, env.Data)
		assert.Equal(t, 1, got.MessagesSent)
		assert.Equal(t, 2, got.RemainingQuota)
		assert.Equal(t, 3, got.GuestChatQuota)
	})

	t.Run("Registered user", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/init?userID=user-1", nil)
		got := decode[models.InitResponse](t, env.Data)
		assert.Equal(t, "registered", got.UserType)
		assert.Equal(t, -1, got.RemainingQuota)
	})
}

func TestQuestionnaireHandlers(t *testing.T) {
	s := newTestServer(t, 5)

	w, env := s.do(t, http.MethodGet, "/api/questionnaires/phq-9?lang=en", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Questionnaire models.QuestionnaireInfo   `json:"questionnaire"`
		Questions     []models.LocalizedQuestion `json:"questions"`
	}](t, env.Data)
	assert.Equal(t, "Depression screening (PHQ-9)", got.Questionnaire.Title)
	assert.True(t, got.Questionnaire.Branching)
	assert.Len(t, got.Questions, 9)

	w, env = s.do(t, http.MethodGet, "/api/questionnaires/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, env.Code)

	w, env = s.do(t, http.MethodGet, "/api/risk-levels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	levels := decode[[]models.RiskPresentation](t, env.Data)
	require.Len(t, levels, 4)
	assert.Equal(t, "red", levels[3].Badge)
}

func TestAssessmentFlow(t *testing.T) {
	s := newTestServer(t, 5)

	w, env := s.do(t, http.MethodPost, "/api/assessments", StartAssessmentRequest{UserID: "user-1", QuestionnaireID: "phq-9"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[models.SessionView](t, env.Data)
	require.NotNil(t, view.Current)
	assert.Equal(t, "phq-1", view.Current.ID)
	base := "/api/assessments/" + view.Session.ID.String()

	t.Run("Submit before complete", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, base+"/submit", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Invalid answer", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, base+"/answers", SubmitAnswerRequest{QuestionID: "phq-1", Values: []string{"7"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"question_id":"phq-1"}`, string(env.Details))
	})

	t.Run("Answer, go back and finish", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, base+"/answers", SubmitAnswerRequest{QuestionID: "phq-1", Values: []string{"1"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "phq-2", decode[models.SessionView](t, env.Data).Current.ID)

		w, env = s.do(t, http.MethodPost, base+"/back", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "phq-1", decode[models.SessionView](t, env.Data).Current.ID)

		for _, a := range []SubmitAnswerRequest{{QuestionID: "phq-1", Values: []string{"0"}}, {QuestionID: "phq-2", Values: []string{"1"}}} {
			w, env = s.do(t, http.MethodPost, base+"/answers", a)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
		done := decode[models.SessionView](t, env.Data)
		assert.Nil(t, done.Current)
		assert.Equal(t, models.StageComplete, done.Session.Stage)
	})

	var recordID uint
	t.Run("Submit", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, base+"/submit", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[models.AssessmentResult](t, env.Data)
		assert.Equal(t, 1.0, result.TotalScore)
		assert.Equal(t, models.RiskLow, result.RiskLevel)
		require.NotZero(t, result.RecordID)
		recordID = result.RecordID

		w, _ = s.do(t, http.MethodPost, base+"/submit", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Results", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/results/user/user-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]models.AssessmentResult](t, env.Data), 1)

		w, _ = s.do(t, http.MethodGet, "/api/results/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w, _ = s.do(t, http.MethodGet, "/api/results/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Plan from the result", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/plan/generate", gin.H{"user_id": "user-1", "result_id": recordID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		plan := decode[models.Plan](t, env.Data)
		require.NotEmpty(t, plan.Tasks)

		w, _ = s.do(t, http.MethodPost, "/api/plan/generate", gin.H{"user_id": "user-2", "result_id": recordID})
		assert.Equal(t, http.StatusForbidden, w.Code)

		task := plan.Tasks[0]
		w, _ = s.do(t, http.MethodPost, "/api/plan/task/"+itoa(task.ID)+"/complete", gin.H{"user_id": "user-2"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		w, env = s.do(t, http.MethodPost, "/api/plan/task/"+itoa(task.ID)+"/complete", gin.H{"user_id": "user-1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.TaskStatusCompleted, decode[models.PlanTask](t, env.Data).Status)
		w, _ = s.do(t, http.MethodPost, "/api/plan/task/"+itoa(task.ID)+"/skip", gin.H{"user_id": "user-1"})
		assert.Equal(t, http.StatusConflict, w.Code)

		w, _ = s.do(t, http.MethodGet, "/api/plan/"+itoa(plan.ID), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w, _ = s.do(t, http.MethodGet, "/api/plan/"+itoa(plan.ID)+"?userID=user-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Dashboard", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/dashboard/user-1?period=all", nil)
		require.Equal(t, http.StatusOK, w.Code)
		dash := decode[models.DashboardResponse](t, env.Data)
		require.Len(t, dash.Questionnaires, 1)
		assert.Equal(t, 1, dash.RiskCounts[models.RiskLow])

		w, _ = s.do(t, http.MethodGet, "/api/dashboard/user-1?reference_date=20/05/2026", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGuestHandlers(t *testing.T) {
	s := newTestServer(t, 5)

	w, env := s.do(t, http.MethodPost, "/api/assessments", StartAssessmentRequest{UserID: "guest_1", QuestionnaireID: "phq-9", Language: models.LanguageThai})
	require.Equal(t, http.StatusOK, w.Code)
	base := "/api/assessments/" + decode[models.SessionView](t, env.Data).Session.ID.String()
	for _, a := range []SubmitAnswerRequest{{QuestionID: "phq-1", Values: []string{"0"}}, {QuestionID: "phq-2", Values: []string{"0"}}} {
		w, _ = s.do(t, http.MethodPost, base+"/answers", a)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ = s.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/guest/guest_1/results/phq-9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[models.AssessmentResult](t, env.Data).RecordID)

	w, _ = s.do(t, http.MethodGet, "/api/guest/user-1/results/phq-9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodDelete, "/api/guest/guest_1/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":1}`, string(env.Data))

	w, _ = s.do(t, http.MethodGet, "/api/guest/guest_1/results/phq-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatHandler(t *testing.T) {
	s := newTestServer(t, 1)

	t.Run("Missing message", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/chat", gin.H{"user_id": "guest_1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("No provider configured", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w, _ := s.do(t, http.MethodPost, "/api/chat", models.ChatRequest{UserID: "guest_1", Message: "hello"})
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		}
		q, err := s.quota.GetQuota("guest_1")
		require.NoError(t, err)
		assert.Equal(t, 0, q.MessagesSent, "failed replies give their reservation back")
	})

	t.Run("Guest over quota", func(t *testing.T) {
		_, err := s.quota.IncrementQuota("guest_2")
		require.NoError(t, err)
		w, env := s.do(t, http.MethodPost, "/api/chat", models.ChatRequest{UserID: "guest_2", Message: "hello"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, env.Message, "limit of 1")
		q, err := s.quota.GetQuota("guest_2")
		require.NoError(t, err)
		assert.Equal(t, 1, q.MessagesSent)
	})
}

func replyServer(t *testing.T, content string) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunk, _ := json.Marshal(openai.ChatCompletionStreamResponse{
			ID:      "chunk",
			Object:  "chat.completion.chunk",
			Model:   "test",
			Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: content}}},
		})
		fmt.Fprintf(w, "data: %s\n\ndata: [DONE]\n\n", chunk)
	}))
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("k")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestChatHandler_GuestQuota(t *testing.T) {
	t.Run("Delivered replies use the quota until the limit", func(t *testing.T) {
		s := newTestServerWithChat(t, 2, replyServer(t, "hi there"))
		for i := 0; i < 2; i++ {
			w, _ := s.do(t, http.MethodPost, "/api/chat", models.ChatRequest{UserID: "guest_seq", Message: "hello"})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "hi there")
		}
		w, _ := s.do(t, http.MethodPost, "/api/chat", models.ChatRequest{UserID: "guest_seq", Message: "hello"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		q, err := s.quota.GetQuota("guest_seq")
		require.NoError(t, err)
		assert.Equal(t, 2, q.MessagesSent)
	})

	t.Run("Concurrent requests never exceed the limit", func(t *testing.T) {
		const quota, requests = 2, 8
		s := newTestServerWithChat(t, quota, replyServer(t, "ok"))
		body, err := json.Marshal(models.ChatRequest{UserID: "guest_burst", Message: "hello"})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			delivered int
		)
		for i := 0; i < requests; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				s.router.ServeHTTP(w, req)
				if w.Code == http.StatusOK {
					mu.Lock()
					delivered++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, delivered, quota)
		q, err := s.quota.GetQuota("guest_burst")
		require.NoError(t, err)
		assert.Equal(t, delivered, q.MessagesSent)
	})
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
