package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"healthscreen/catalog"
	"healthscreen/models"
	"healthscreen/repository"
	"healthscreen/services"
	"healthscreen/session"
	"healthscreen/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIHandler holds all dependencies for API handlers, such as repositories and services.
type APIHandler struct {
	catalog           *catalog.Catalog
	quotaRepo         repository.QuotaRepository
	assessmentService services.AssessmentService
	chatService       services.ChatService
	planService       services.PlanService
	dashboardService  services.DashboardService
	defaultLanguage   models.Language
	analysisEnabled   bool
	guestChatQuota    atomic.Int64
	log               *zap.Logger
}

// Options carries the settings the handlers read at request time.
type Options struct {
	DefaultLanguage models.Language
	GuestChatQuota  int
	AnalysisEnabled bool // false when the local analysis fallback is in use
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(
	cat *catalog.Catalog,
	quotaRepo repository.QuotaRepository,
	assessmentService services.AssessmentService,
	chatService services.ChatService,
	planService services.PlanService,
	dashboardService services.DashboardService,
	opts Options,
	log *zap.Logger,
) *APIHandler {
	h := &APIHandler{
		catalog:           cat,
		quotaRepo:         quotaRepo,
		assessmentService: assessmentService,
		chatService:       chatService,
		planService:       planService,
		dashboardService:  dashboardService,
		defaultLanguage:   models.ParseLanguage(string(opts.DefaultLanguage), models.LanguageThai),
		analysisEnabled:   opts.AnalysisEnabled,
		log:               log.Named("API"),
	}
	h.SetGuestChatQuota(opts.GuestChatQuota)
	return h
}

// SetGuestChatQuota changes the guest message limit. Safe to call while serving.
func (h *APIHandler) SetGuestChatQuota(quota int) {
	h.guestChatQuota.Store(int64(quota))
}

func (h *APIHandler) guestQuota() int {
	return int(h.guestChatQuota.Load())
}

// RegisterRoutes mounts every endpoint under /api.
func (h *APIHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api")

	g.GET("/init", h.InitHandler)
	g.GET("/risk-levels", h.RiskLevelsHandler)

	g.GET("/questionnaires", h.ListQuestionnairesHandler)
	g.GET("/questionnaires/:id", h.GetQuestionnaireHandler)

	g.POST("/assessments", h.StartAssessmentHandler)
	g.GET("/assessments/:sessionID", h.GetSessionHandler)
	g.POST("/assessments/:sessionID/answers", h.SubmitAnswerHandler)
	g.POST("/assessments/:sessionID/back", h.GoBackHandler)
	g.POST("/assessments/:sessionID/submit", h.SubmitAssessmentHandler)

	g.GET("/results/user/:userID", h.ListResultsHandler)
	g.GET("/results/:resultID", h.GetResultHandler)

	g.GET("/guest/:guestID/results/:questionnaireID", h.GetGuestResultHandler)
	g.DELETE("/guest/:guestID/results", h.ClearGuestResultsHandler)

	g.POST("/chat", h.ChatHandler)
	g.GET("/chat/history/:userID", h.ChatHistoryHandler)

	plan := g.Group("/plan")
	plan.POST("/generate", h.GeneratePlanHandler)
	plan.GET("/user/:userID", h.GetPlansForUserHandler)
	plan.GET("/user/:userID/active", h.GetActivePlanHandler)
	plan.GET("/:planID", h.GetPlanDetailsHandler)
	plan.POST("/task/:taskID/complete", h.CompleteTaskHandler)
	plan.POST("/task/:taskID/skip", h.SkipTaskHandler)

	g.GET("/dashboard/:userID", h.DashboardHandler)
}

// requestLanguage reads ?lang=, falling back to the configured default.
func (h *APIHandler) requestLanguage(c *gin.Context) models.Language {
	return models.ParseLanguage(c.Query("lang"), h.defaultLanguage)
}

// InitHandler returns application initialization information, including user status and quota.
// GET /api/init?userID=&lang=
func (h *APIHandler) InitHandler(c *gin.Context) {
	userID := c.Query("userID")
	lang := h.requestLanguage(c)
	quota := h.guestQuota()

	response := models.InitResponse{
		UserType:        "registered",
		UserID:          userID,
		Language:        lang,
		Languages:       []models.Language{models.LanguageThai, models.LanguageEnglish},
		GuestChatQuota:  quota,
		RemainingQuota:  -1, // No limit for registered users
		Questionnaires:  h.questionnaireInfos(lang),
		RiskLevels:      riskPresentations(),
		AnalysisEnabled: h.analysisEnabled,
	}

	if userID == "" || utils.IsGuestID(userID) {
		response.UserType = "guest"
		if userID == "" {
			response.UserID = utils.NewGuestID()
			h.log.Info("No userID provided, generated new guest ID", zap.String("user_id", response.UserID))
		}
		sent := 0
		if q, err := h.quotaRepo.GetQuota(response.UserID); err != nil {
			h.log.Warn("Error fetching guest quota, assuming 0 messages sent", zap.String("user_id", response.UserID), zap.Error(err))
		} else {
			sent = q.MessagesSent
		}
		response.MessagesSent = sent
		response.RemainingQuota = max(quota-sent, 0)
	}

	utils.SendJSON(c, "success", response)
}

func riskPresentations() []models.RiskPresentation {
	out := make([]models.RiskPresentation, 0, len(models.RiskLevels))
	for _, level := range models.RiskLevels {
		out = append(out, level.Presentation())
	}
	return out
}

// RiskLevelsHandler returns the canonical label, badge and advice of every risk level.
// GET /api/risk-levels
func (h *APIHandler) RiskLevelsHandler(c *gin.Context) {
	utils.SendJSON(c, "success", riskPresentations())
}

func (h *APIHandler) questionnaireInfos(lang models.Language) []models.QuestionnaireInfo {
	list := h.catalog.List()
	out := make([]models.QuestionnaireInfo, 0, len(list))
	for _, q := range list {
		out = append(out, q.Info(lang))
	}
	return out
}

// ListQuestionnairesHandler lists the catalog.
// GET /api/questionnaires?lang=
func (h *APIHandler) ListQuestionnairesHandler(c *gin.Context) {
	utils.SendJSON(c, "success", h.questionnaireInfos(h.requestLanguage(c)))
}

// GetQuestionnaireHandler returns one questionnaire with its questions rendered in ?lang=.
// GET /api/questionnaires/:id
func (h *APIHandler) GetQuestionnaireHandler(c *gin.Context) {
	id := c.Param("id")
	q, ok := h.catalog.Questionnaire(id)
	if !ok {
		utils.SendJSONError(c, h.log, http.StatusNotFound, "Questionnaire not found.", fmt.Errorf("questionnaire %q: %w", id, services.ErrQuestionnaireNotFound))
		return
	}
	lang := h.requestLanguage(c)
	utils.SendJSON(c, "success", gin.H{
		"questionnaire": q.Info(lang),
		"questions":     h.catalog.Questions(id, lang),
	})
}

// respondError maps service errors to status codes.
func (h *APIHandler) respondError(c *gin.Context, fallback string, err error) {
	var validation *session.ValidationError
	switch {
	case errors.As(err, &validation):
		utils.SendJSONError(c, h.log, http.StatusBadRequest, validation.Reason, err, gin.H{"question_id": validation.QuestionID})
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrQuestionnaireNotFound),
		errors.Is(err, services.ErrResultNotFound),
		errors.Is(err, services.ErrPlanNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		utils.SendJSONError(c, h.log, http.StatusNotFound, publicMessage(err), err)
	case errors.Is(err, services.ErrAssessmentIncomplete),
		errors.Is(err, services.ErrSubmissionInProgress),
		errors.Is(err, services.ErrSessionSubmitted),
		errors.Is(err, services.ErrTaskAlreadyCompleted):
		utils.SendJSONError(c, h.log, http.StatusConflict, publicMessage(err), err)
	case errors.Is(err, services.ErrPlanForbidden), errors.Is(err, services.ErrGuestPlan):
		utils.SendJSONError(c, h.log, http.StatusForbidden, publicMessage(err), err)
	case errors.Is(err, services.ErrAnalysisFailed):
		utils.SendJSONError(c, h.log, http.StatusBadGateway, "The analysis service is unavailable. Your answers are kept, please submit again.", err)
	case errors.Is(err, services.ErrChatUnavailable):
		utils.SendJSONError(c, h.log, http.StatusServiceUnavailable, "Chat is not available at the moment.", err)
	default:
		utils.SendJSONError(c, h.log, http.StatusInternalServerError, fallback, err)
	}
}

var publicMessages = map[error]string{
	services.ErrSessionNotFound:       "Assessment session not found.",
	services.ErrQuestionnaireNotFound: "Questionnaire not found.",
	services.ErrResultNotFound:        "Result not found.",
	services.ErrPlanNotFound:          "Plan not found.",
	services.ErrTaskNotFound:          "Task not found.",
	services.ErrAssessmentIncomplete:  "Please answer all questions before submitting.",
	services.ErrSubmissionInProgress:  "This assessment is already being submitted.",
	services.ErrSessionSubmitted:      "This assessment has already been submitted.",
	services.ErrTaskAlreadyCompleted:  "Cannot skip an already completed task.",
	services.ErrPlanForbidden:         "You are not authorized to access this plan.",
	services.ErrGuestPlan:             "Please register to use care plans.",
}

func publicMessage(err error) string {
	for sentinel, msg := range publicMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// Helper to parse uint from string
func parseUint(s string) (uint, error) {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric ID: %s. Error: %w", s, err)
	}
	return uint(u), nil
}

func (h *APIHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid session ID.", err)
		return uuid.Nil, false
	}
	return id, true
}
