package repository

import (
	"errors"
	"sync"

	"healthscreen/models"
)

// ChatRepository stores chat widget history.
type ChatRepository interface {
	SaveMessage(message models.ChatMessage) error
	GetMessagesByUserID(userID string, limit int) ([]models.ChatMessage, error)
	ClearMessages(userID string)
}

// chatRepository keeps messages in memory, grouped by user.
type chatRepository struct {
	messages map[string][]models.ChatMessage
	mu       sync.RWMutex
}

// NewChatRepository creates an in-memory chat repository.
func NewChatRepository() ChatRepository {
	return &chatRepository{
		messages: make(map[string][]models.ChatMessage),
	}
}

// SaveMessage appends a message. IDs increase per user.
func (r *chatRepository) SaveMessage(message models.ChatMessage) error {
	if message.UserID == "" {
		return errors.New("failed to save message: user ID cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	userMessages := r.messages[message.UserID]
	message.ID = uint(len(userMessages) + 1)
	r.messages[message.UserID] = append(userMessages, message)
	return nil
}

// GetMessagesByUserID returns the last limit messages in chronological order, or all of them when
// limit is not positive. A user without history gets an empty slice.
func (r *chatRepository) GetMessagesByUserID(userID string, limit int) ([]models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userMessages := r.messages[userID]
	if limit > 0 && len(userMessages) > limit {
		userMessages = userMessages[len(userMessages)-limit:]
	}
	result := make([]models.ChatMessage, len(userMessages))
	copy(result, userMessages)
	return result, nil
}

func (r *chatRepository) ClearMessages(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, userID)
}
