package repository

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"healthscreen/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository stores in-progress assessment sessions.
type SessionRepository interface {
	Create(s *models.AssessmentSession) (*models.AssessmentSession, error)
	GetByID(id uuid.UUID) (*models.AssessmentSession, error)
	FindInProgress(userID, questionnaireID string) (*models.AssessmentSession, error)
	Update(s *models.AssessmentSession) (*models.AssessmentSession, error)
	DeleteByUser(userID string) int
}

// sessionRepository keeps sessions in memory. Callers always receive copies.
type sessionRepository struct {
	sessions  map[uuid.UUID]*models.AssessmentSession
	userIndex map[string][]uuid.UUID
	mu        sync.RWMutex
	log       *zap.Logger
}

// NewSessionRepository creates an in-memory session repository.
func NewSessionRepository(log *zap.Logger) SessionRepository {
	return &sessionRepository{
		sessions:  make(map[uuid.UUID]*models.AssessmentSession),
		userIndex: make(map[string][]uuid.UUID),
		log:       log.Named("SessionRepository"),
	}
}

func (r *sessionRepository) Create(s *models.AssessmentSession) (*models.AssessmentSession, error) {
	if s.UserID == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if _, exists := r.sessions[s.ID]; exists {
		return nil, fmt.Errorf("session %s already exists", s.ID)
	}
	now := time.Now()
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = models.SessionStatusInProgress
	}

	r.sessions[s.ID] = s.Clone()
	r.userIndex[s.UserID] = append(r.userIndex[s.UserID], s.ID)
	r.log.Debug("Created session", zap.Stringer("session_id", s.ID), zap.String("user_id", s.UserID), zap.String("questionnaire_id", s.QuestionnaireID))
	return s.Clone(), nil
}

// GetByID returns (nil, nil) when the session does not exist.
func (r *sessionRepository) GetByID(id uuid.UUID) (*models.AssessmentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, nil
	}
	return s.Clone(), nil
}

// FindInProgress returns the user's most recently updated session for the questionnaire that has
// not been submitted yet, or (nil, nil).
func (r *sessionRepository) FindInProgress(userID, questionnaireID string) (*models.AssessmentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.AssessmentSession
	for _, id := range r.userIndex[userID] {
		s, exists := r.sessions[id]
		if !exists {
			r.log.Error("Session index is inconsistent", zap.Stringer("session_id", id), zap.String("user_id", userID))
			continue
		}
		if s.QuestionnaireID != questionnaireID || s.Status == models.SessionStatusSubmitted {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.Clone(), nil
}

func (r *sessionRepository) Update(s *models.AssessmentSession) (*models.AssessmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	original, exists := r.sessions[s.ID]
	if !exists {
		return nil, fmt.Errorf("update failed: session %s not found", s.ID)
	}

	// Ownership and start time never change.
	s.UserID = original.UserID
	s.Guest = original.Guest
	s.QuestionnaireID = original.QuestionnaireID
	s.StartedAt = original.StartedAt
	s.UpdatedAt = time.Now()

	r.sessions[s.ID] = s.Clone()
	return s.Clone(), nil
}

// DeleteByUser drops every session of the user and returns how many were removed.
func (r *sessionRepository) DeleteByUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.userIndex[userID]
	for _, id := range ids {
		delete(r.sessions, id)
	}
	delete(r.userIndex, userID)
	if len(ids) > 0 {
		r.log.Debug("Deleted user sessions", zap.String("user_id", userID), zap.Int("count", len(ids)))
	}
	return len(ids)
}
