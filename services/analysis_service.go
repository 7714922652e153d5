package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"healthscreen/models"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// AnalysisClient turns a scored assessment into a bilingual summary and recommendations.
// Implementations make a single attempt; callers decide whether to retry.
type AnalysisClient interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	Name() string
}

// ChatCompleter is the part of the OpenAI client used for analysis.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const analysisSystemPrompt = `You are a health screening assistant for a Thai public health service.
You receive a completed questionnaire with its locally computed score and risk level.
Reply with a single JSON object of the form:
{"summary":{"th":"...","en":"..."},"recommendations":[{"th":"...","en":"..."}],"risk_level":"low|medium|high|very-high"}
Write 2 to 4 short recommendations. Do not diagnose. If any risk factor mentions self-harm or suicide,
the first recommendation must tell the user to call the Department of Mental Health hotline 1323.`

type openAIAnalysisClient struct {
	client ChatCompleter
	model  string
	log    *zap.Logger
}

// NewOpenAIAnalysisClient creates an analysis client for an OpenAI-compatible endpoint.
func NewOpenAIAnalysisClient(apiKey, baseURL, model string, log *zap.Logger) AnalysisClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewAnalysisClientWithCompleter(openai.NewClientWithConfig(cfg), model, log)
}

// NewAnalysisClientWithCompleter wires an existing completer, such as a test double.
func NewAnalysisClientWithCompleter(client ChatCompleter, model string, log *zap.Logger) AnalysisClient {
	return &openAIAnalysisClient{client: client, model: model, log: log.Named("AnalysisClient")}
}

func (c *openAIAnalysisClient) Name() string { return "openai" }

type analysisPayload struct {
	Summary         models.LocalizedText   `json:"summary"`
	Recommendations []models.LocalizedText `json:"recommendations"`
	RiskLevel       models.RiskLevel       `json:"risk_level"`
}

func (c *openAIAnalysisClient) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(body)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis completion for %s: %w", req.QuestionnaireID, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("analysis completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		c.log.Warn("Undecodable analysis reply", zap.String("questionnaire_id", req.QuestionnaireID), zap.Int("length", len(content)))
		return nil, fmt.Errorf("decode analysis reply: %w", err)
	}
	if payload.Summary.In(req.Language) == "" {
		return nil, errors.New("analysis reply has no summary")
	}
	if !payload.RiskLevel.Valid() {
		payload.RiskLevel = ""
	}
	if payload.Recommendations == nil {
		payload.Recommendations = []models.LocalizedText{}
	}

	c.log.Debug("Analysis received",
		zap.String("questionnaire_id", req.QuestionnaireID),
		zap.Int("recommendations", len(payload.Recommendations)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return &models.AnalysisResult{
		Summary:         payload.Summary,
		Recommendations: payload.Recommendations,
		RiskLevel:       payload.RiskLevel,
		Provider:        c.Name(),
	}, nil
}

type localAnalysisClient struct{}

// NewLocalAnalysisClient returns an analysis client that needs no network. It derives the
// summary and recommendations from the risk presentation table.
func NewLocalAnalysisClient() AnalysisClient {
	return localAnalysisClient{}
}

func (localAnalysisClient) Name() string { return "local" }

var hotlineRecommendation = models.LocalizedText{
	models.LanguageThai:    "โทรสายด่วนสุขภาพจิต 1323 ได้ตลอด 24 ชั่วโมง",
	models.LanguageEnglish: "Call the mental health hotline 1323, available 24 hours a day.",
}

var retakeRecommendation = models.LocalizedText{
	models.LanguageThai:    "ทำแบบประเมินซ้ำเพื่อติดตามการเปลี่ยนแปลง",
	models.LanguageEnglish: "Retake this screening later to follow changes.",
}

func (localAnalysisClient) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := req.RiskLevel.Presentation()
	summary := models.LocalizedText{
		models.LanguageThai: fmt.Sprintf("%s: คะแนน %s จาก %s (%s)",
			req.Title, formatScore(req.TotalScore), formatScore(req.MaxScore), p.Label.In(models.LanguageThai)),
		models.LanguageEnglish: fmt.Sprintf("%s: score %s of %s (%s)",
			req.Title, formatScore(req.TotalScore), formatScore(req.MaxScore), p.Label.In(models.LanguageEnglish)),
	}

	recs := []models.LocalizedText{}
	for _, f := range req.RiskFactors {
		if IsSelfHarmFactor(f) {
			recs = append(recs, hotlineRecommendation)
			break
		}
	}
	recs = append(recs, p.Advice, retakeRecommendation)

	return &models.AnalysisResult{
		Summary:         summary,
		Recommendations: recs,
		RiskLevel:       req.RiskLevel,
		Provider:        "local",
	}, nil
}

func formatScore(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
