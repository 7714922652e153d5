package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"healthscreen/config"
	"healthscreen/models"
	"healthscreen/repository"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrChatUnavailable = errors.New("chat provider is not configured")

// ChatService streams help-widget replies and keeps the conversation history.
type ChatService interface {
	// ProcessMessageStream writes the reply to w as server-sent events and returns the full text.
	ProcessMessageStream(ctx context.Context, req models.ChatRequest, w http.ResponseWriter) (string, error)
	GetChatHistory(userID string) ([]models.ChatMessage, error)
	ClearHistory(userID string)
}

type chatService struct {
	client     *openai.Client // nil when no provider key is configured
	cfg        config.ChatConfig
	chatRepo   repository.ChatRepository
	resultRepo repository.ResultRepository
	log        *zap.Logger
}

// NewChatService creates a chat service. client may be nil, in which case every message fails
// with ErrChatUnavailable.
func NewChatService(client *openai.Client, cfg config.ChatConfig, chatRepo repository.ChatRepository, resultRepo repository.ResultRepository, log *zap.Logger) ChatService {
	return &chatService{
		client:     client,
		cfg:        cfg,
		chatRepo:   chatRepo,
		resultRepo: resultRepo,
		log:        log.Named("ChatService"),
	}
}

// NewOpenAIClient builds a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(provider config.LLMProvider) *openai.Client {
	cfg := openai.DefaultConfig(provider.APIKey)
	if provider.BaseURL != "" {
		cfg.BaseURL = provider.BaseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (s *chatService) GetChatHistory(userID string) ([]models.ChatMessage, error) {
	return s.chatRepo.GetMessagesByUserID(userID, 0)
}

func (s *chatService) ClearHistory(userID string) {
	s.chatRepo.ClearMessages(userID)
}

// resultContext describes the user's own stored result so the assistant can discuss it.
func (s *chatService) resultContext(ctx context.Context, req models.ChatRequest) string {
	if req.ResultID == 0 {
		return ""
	}
	rec, err := s.resultRepo.GetAssessmentRecordByID(ctx, req.ResultID)
	if err != nil || rec == nil || rec.UserID != req.UserID {
		s.log.Warn("Result context unavailable", zap.String("user_id", req.UserID), zap.Uint("result_id", req.ResultID), zap.Error(err))
		return ""
	}
	result, err := rec.DecodeResult()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("The user completed the %s screening: score %.0f of %.0f, risk level %s, risk factors [%s]. Summary: %s",
		result.QuestionnaireID, result.TotalScore, result.MaxScore, result.RiskLevel,
		strings.Join(result.RiskFactors, ", "), result.Summary)
}

func (s *chatService) buildMessages(ctx context.Context, req models.ChatRequest, history []models.ChatMessage) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if s.cfg.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.cfg.SystemPrompt})
	}
	if req.Language != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Reply in the language with code: " + string(req.Language),
		})
	}
	if extra := s.resultContext(ctx, req); extra != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: extra})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})
}

func writeEvent(w http.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (s *chatService) ProcessMessageStream(ctx context.Context, req models.ChatRequest, w http.ResponseWriter) (string, error) {
	if s.client == nil {
		return "", ErrChatUnavailable
	}

	history, err := s.chatRepo.GetMessagesByUserID(req.UserID, s.cfg.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load chat history for userID %s: %w", req.UserID, err)
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.cfg.Model,
		Messages: s.buildMessages(ctx, req, history),
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion stream for userID %s: %w", req.UserID, err)
	}
	defer stream.Close()

	if err := s.chatRepo.SaveMessage(models.ChatMessage{UserID: req.UserID, Role: openai.ChatMessageRoleUser, Content: req.Message, Timestamp: time.Now()}); err != nil {
		return "", err
	}

	// Headers go out with the first event so a stream that fails before any chunk can still be
	// answered with a JSON error.
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
	}

	var reply strings.Builder
	var streamErr error
	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			streamErr = fmt.Errorf("receive chat stream for userID %s: %w", req.UserID, recvErr)
			break
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		content := resp.Choices[0].Delta.Content
		reply.WriteString(content)
		start()
		if err := writeEvent(w, map[string]string{"content": content}); err != nil {
			streamErr = fmt.Errorf("write chat event: %w", err)
			break
		}
	}

	full := reply.String()
	if full != "" {
		if err := s.chatRepo.SaveMessage(models.ChatMessage{UserID: req.UserID, Role: openai.ChatMessageRoleAssistant, Content: full, Timestamp: time.Now()}); err != nil {
			s.log.Error("Failed to save assistant reply", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}
	if streamErr != nil {
		return full, streamErr
	}
	start()
	if err := writeEvent(w, map[string]bool{"done": true}); err != nil {
		s.log.Warn("Failed to write chat done event", zap.String("user_id", req.UserID), zap.Error(err))
	}
	s.log.Debug("Chat reply streamed", zap.String("user_id", req.UserID), zap.Int("length", len(full)))
	return full, nil
}
