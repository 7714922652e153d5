package repository

import (
	"sort"
	"sync"
	"time"

	"healthscreen/models"
)

// GuestResultRepository keeps guest results for a limited time. Nothing is persisted.
type GuestResultRepository interface {
	Put(guestID string, result *models.AssessmentResult)
	Get(guestID, questionnaireID string) (*models.AssessmentResult, bool)
	List(guestID string) []*models.AssessmentResult
	Clear(guestID string) int
	Sweep() int
}

type guestEntry struct {
	result    *models.AssessmentResult
	expiresAt time.Time
}

type guestResultRepository struct {
	entries map[string]map[string]guestEntry // guest id -> questionnaire id -> entry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewGuestResultRepository creates an in-memory store. A ttl of 0 keeps entries until cleared.
func NewGuestResultRepository(ttl time.Duration) GuestResultRepository {
	return newGuestResultRepository(ttl, time.Now)
}

func newGuestResultRepository(ttl time.Duration, now func() time.Time) *guestResultRepository {
	return &guestResultRepository{
		entries: make(map[string]map[string]guestEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (r *guestResultRepository) expired(e guestEntry) bool {
	return r.ttl > 0 && !r.now().Before(e.expiresAt)
}

// Put stores result, replacing any earlier result of the same guest and questionnaire.
func (r *guestResultRepository) Put(guestID string, result *models.AssessmentResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byQuestionnaire, ok := r.entries[guestID]
	if !ok {
		byQuestionnaire = make(map[string]guestEntry)
		r.entries[guestID] = byQuestionnaire
	}
	byQuestionnaire[result.QuestionnaireID] = guestEntry{result: result, expiresAt: r.now().Add(r.ttl)}
}

func (r *guestResultRepository) Get(guestID, questionnaireID string) (*models.AssessmentResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[guestID][questionnaireID]
	if !ok || r.expired(e) {
		return nil, false
	}
	return e.result, true
}

// List returns the guest's live results, newest first.
func (r *guestResultRepository) List(guestID string) []*models.AssessmentResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.AssessmentResult{}
	for _, e := range r.entries[guestID] {
		if !r.expired(e) {
			out = append(out, e.result)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Clear drops every result of the guest and returns how many were removed.
func (r *guestResultRepository) Clear(guestID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries[guestID])
	delete(r.entries, guestID)
	return n
}

// Sweep removes expired entries and returns how many were removed.
func (r *guestResultRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for guestID, byQuestionnaire := range r.entries {
		for qid, e := range byQuestionnaire {
			if r.expired(e) {
				delete(byQuestionnaire, qid)
				removed++
			}
		}
		if len(byQuestionnaire) == 0 {
			delete(r.entries, guestID)
		}
	}
	return removed
}
