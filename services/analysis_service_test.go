package services

import (
	"context"
	"errors"
	"testing"

	"healthscreen/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}}},
	}
}

func TestOpenAIAnalysisClient_Analyze(t *testing.T) {
	ctx := context.Background()
	req := models.AnalysisRequest{
		QuestionnaireID: "audit",
		Title:           "AUDIT",
		Language:        models.LanguageEnglish,
		TotalScore:      18,
		MaxScore:        40,
		RiskLevel:       models.RiskHigh,
		RiskFactors:     []string{"blackouts"},
	}

	t.Run("Decodes JSON reply", func(t *testing.T) {
		completer := new(MockChatCompleter)
		client := NewAnalysisClientWithCompleter(completer, "gpt-4o-mini", zap.NewNop())
		completer.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(r openai.ChatCompletionRequest) bool {
			return r.Model == "gpt-4o-mini" && r.ResponseFormat != nil &&
				r.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject && len(r.Messages) == 2
		})).Return(completion(`{"summary":{"en":"Harmful drinking","th":"ดื่มแบบเสี่ยง"},"recommendations":[{"en":"Cut down","th":"ลดการดื่ม"}],"risk_level":"high"}`), nil).Once()

		got, err := client.Analyze(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Harmful drinking", got.Summary.In(models.LanguageEnglish))
		assert.Equal(t, "ลดการดื่ม", got.Recommendations[0].In(models.LanguageThai))
		assert.Equal(t, models.RiskHigh, got.RiskLevel)
		assert.Equal(t, "openai", got.Provider)
		completer.AssertExpectations(t)
	})

	t.Run("Unknown risk level is dropped", func(t *testing.T) {
		completer := new(MockChatCompleter)
		client := NewAnalysisClientWithCompleter(completer, "m", zap.NewNop())
		completer.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(completion(` {"summary":{"en":"ok"},"risk_level":"extreme"} `), nil).Once()

		got, err := client.Analyze(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, got.RiskLevel)
		assert.NotNil(t, got.Recommendations)
	})

	t.Run("Failures are returned", func(t *testing.T) {
		cases := map[string]func(*MockChatCompleter){
			"transport": func(m *MockChatCompleter) {
				m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, errors.New("connection reset"))
			},
			"no choices": func(m *MockChatCompleter) {
				m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)
			},
			"not json": func(m *MockChatCompleter) {
				m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(completion("Sure! Here is your analysis."), nil)
			},
			"no summary": func(m *MockChatCompleter) {
				m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(completion(`{"recommendations":[]}`), nil)
			},
		}
		for name, setup := range cases {
			t.Run(name, func(t *testing.T) {
				completer := new(MockChatCompleter)
				setup(completer)
				_, err := NewAnalysisClientWithCompleter(completer, "m", zap.NewNop()).Analyze(ctx, req)
				assert.Error(t, err)
			})
		}
	})
}

func TestLocalAnalysisClient_Analyze(t *testing.T) {
	client := NewLocalAnalysisClient()

	t.Run("Uses the canonical risk presentation", func(t *testing.T) {
		got, err := client.Analyze(context.Background(), models.AnalysisRequest{
			Title: "PHQ-9", TotalScore: 12, MaxScore: 27, RiskLevel: models.RiskHigh,
		})
		require.NoError(t, err)
		assert.Equal(t, "PHQ-9: score 12 of 27 (High risk)", got.Summary.In(models.LanguageEnglish))
		assert.Contains(t, got.Summary.In(models.LanguageThai), "ความเสี่ยงสูง")
		require.Len(t, got.Recommendations, 2)
		assert.Equal(t, models.RiskHigh.Presentation().Advice, got.Recommendations[0])
		assert.Equal(t, "local", got.Provider)
	})

	t.Run("Self-harm factors lead with the hotline", func(t *testing.T) {
		got, err := client.Analyze(context.Background(), models.AnalysisRequest{
			RiskLevel: models.RiskLow, RiskFactors: []string{"self-harm-thoughts"},
		})
		require.NoError(t, err)
		assert.Contains(t, got.Recommendations[0].In(models.LanguageEnglish), MentalHealthHotline)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.Analyze(ctx, models.AnalysisRequest{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "12", formatScore(12))
	assert.Equal(t, "2.5", formatScore(2.5))
	assert.Equal(t, "0", formatScore(0))
}
