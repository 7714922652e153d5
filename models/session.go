package models

import (
	"time"

	"github.com/google/uuid"
)

// FlowStage is where a session sits in its questionnaire flow.
type FlowStage string

const (
	StageInitialScreen  FlowStage = "initial_screen"  // Screening prefix of a branching instrument
	StageExtendedScreen FlowStage = "extended_screen" // Remainder after the screen met its threshold
	StageInProgress     FlowStage = "in_progress"     // Linear instrument
	StageComplete       FlowStage = "complete"
)

// SessionStatus is the lifecycle status of a session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed" // Flow finished, not yet submitted
	SessionStatusSubmitted  SessionStatus = "submitted"
)

// AssessmentSession is one user's in-progress run through a questionnaire.
// Sessions are held in memory only.
type AssessmentSession struct {
	ID              uuid.UUID     `json:"id"`
	QuestionnaireID string        `json:"questionnaire_id"`
	UserID          string        `json:"user_id"`
	Guest           bool          `json:"guest"`
	Language        Language      `json:"language"`
	Answers         []Answer      `json:"answers"`
	Position        int           `json:"position"`
	Stage           FlowStage     `json:"stage"`
	Extended        bool          `json:"extended"`
	Status          SessionStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// Answer returns the stored answer for a question.
func (s *AssessmentSession) Answer(questionID string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Clone returns a deep copy so callers can mutate a session without touching the stored one.
func (s *AssessmentSession) Clone() *AssessmentSession {
	c := *s
	c.Answers = make([]Answer, len(s.Answers))
	for i, a := range s.Answers {
		if cv, ok := a.Value.(ChoicesValue); ok {
			a.Value = ChoicesValue{Choices: append([]string(nil), cv.Choices...)}
		}
		c.Answers[i] = a
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// SessionView is what the API returns for a session: the session plus the question to show next.
type SessionView struct {
	Session  *AssessmentSession `json:"session"`
	Current  *LocalizedQuestion `json:"current_question,omitempty"`
	Total    int                `json:"total_questions"` // Size of the active question set
	Answered int                `json:"answered"`
}
