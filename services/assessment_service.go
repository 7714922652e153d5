package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"healthscreen/models"
	"healthscreen/repository"
	"healthscreen/scoring"
	"healthscreen/session"
	"healthscreen/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound       = errors.New("assessment session not found")
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	ErrAssessmentIncomplete  = errors.New("assessment is not complete")
	ErrSessionSubmitted      = errors.New("assessment has already been submitted")
	ErrSubmissionInProgress  = errors.New("assessment submission already in progress")
	ErrAnalysisFailed        = errors.New("assessment analysis failed")
	ErrResultNotFound        = errors.New("assessment result not found")
)

// QuestionnaireSource looks up questionnaire definitions.
type QuestionnaireSource interface {
	Questionnaire(id string) (*models.Questionnaire, bool)
}

// AssessmentService defines the interface for assessment-related operations.
// Validation failures are returned as *session.ValidationError and leave the session unchanged.
type AssessmentService interface {
	StartAssessment(userID, questionnaireID string, lang models.Language) (*models.SessionView, error)
	SubmitAnswer(sessionID uuid.UUID, questionID string, raw []string) (*models.SessionView, error)
	GoBack(sessionID uuid.UUID) (*models.SessionView, error)
	GetSession(sessionID uuid.UUID) (*models.SessionView, error)
	CompleteAssessment(ctx context.Context, sessionID uuid.UUID) (*models.AssessmentResult, error)
	GetResult(ctx context.Context, resultID uint) (*models.AssessmentResult, error)
	ListResults(ctx context.Context, userID string) ([]*models.AssessmentResult, error)
	GetGuestResult(guestID, questionnaireID string) (*models.AssessmentResult, error)
	ClearGuestResults(guestID string) int
}

type assessmentService struct {
	questionnaires QuestionnaireSource
	sessions       repository.SessionRepository
	results        repository.ResultRepository
	guests         repository.GuestResultRepository
	analysis       AnalysisClient
	log            *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewAssessmentService creates a new instance of AssessmentService.
func NewAssessmentService(
	questionnaires QuestionnaireSource,
	sessions repository.SessionRepository,
	results repository.ResultRepository,
	guests repository.GuestResultRepository,
	analysis AnalysisClient,
	log *zap.Logger,
) AssessmentService {
	return &assessmentService{
		questionnaires: questionnaires,
		sessions:       sessions,
		results:        results,
		guests:         guests,
		analysis:       analysis,
		log:            log.Named("AssessmentService"),
		inFlight:       make(map[uuid.UUID]struct{}),
	}
}

func (s *assessmentService) questionnaire(id string) (*models.Questionnaire, error) {
	q, ok := s.questionnaires.Questionnaire(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionnaireNotFound, id)
	}
	return q, nil
}

// load returns the stored session bound to a flow controller.
func (s *assessmentService) load(sessionID uuid.UUID) (*session.Controller, error) {
	sess, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	q, err := s.questionnaire(sess.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	return session.NewController(q, sess), nil
}

func (s *assessmentService) save(ctl *session.Controller) error {
	updated, err := s.sessions.Update(ctl.Session())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", ctl.Session().ID, err)
	}
	*ctl.Session() = *updated
	return nil
}

func view(ctl *session.Controller) *models.SessionView {
	sess := ctl.Session()
	active := ctl.ActiveQuestions()
	v := &models.SessionView{Session: sess, Total: len(active)}
	for i := range active {
		if _, ok := sess.Answer(active[i].ID); ok {
			v.Answered++
		}
	}
	if cur, ok := ctl.Current(); ok {
		lq := cur.Localize(sess.Language, ctl.Questionnaire().IndexOf(cur.ID)+1)
		v.Current = &lq
	}
	return v
}

// StartAssessment resumes the user's unsubmitted session for the questionnaire or starts a new one.
func (s *assessmentService) StartAssessment(userID, questionnaireID string, lang models.Language) (*models.SessionView, error) {
	q, err := s.questionnaire(questionnaireID)
	if err != nil {
		return nil, err
	}

	existing, err := s.sessions.FindInProgress(userID, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to find in-progress session for userID %s: %w", userID, err)
	}
	if existing != nil {
		ctl := session.NewController(q, existing)
		if lang != "" && lang != existing.Language {
			existing.Language = lang
			if err := s.save(ctl); err != nil {
				return nil, err
			}
		}
		s.log.Info("Resuming assessment session",
			zap.String("user_id", userID),
			zap.Stringer("session_id", existing.ID),
			zap.Int("position", existing.Position),
		)
		return view(ctl), nil
	}

	if lang == "" {
		lang = models.LanguageThai
	}
	fresh := &models.AssessmentSession{
		QuestionnaireID: questionnaireID,
		UserID:          userID,
		Guest:           utils.IsGuestID(userID),
		Language:        lang,
		Answers:         []models.Answer{},
	}
	session.NewController(q, fresh)
	created, err := s.sessions.Create(fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for userID %s: %w", userID, err)
	}
	s.log.Info("Started assessment session",
		zap.String("user_id", userID),
		zap.String("questionnaire_id", questionnaireID),
		zap.Stringer("session_id", created.ID),
		zap.Bool("guest", created.Guest),
	)
	return view(session.NewController(q, created)), nil
}

// SubmitAnswer records the answer to the current question and advances the flow.
func (s *assessmentService) SubmitAnswer(sessionID uuid.UUID, questionID string, raw []string) (*models.SessionView, error) {
	ctl, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if ctl.Session().Status == models.SessionStatusSubmitted {
		return nil, ErrSessionSubmitted
	}
	cur, ok := ctl.Current()
	if !ok {
		return nil, &session.ValidationError{QuestionID: questionID, Reason: "the assessment has no open question; go back to change an answer"}
	}
	if cur.ID != questionID {
		return nil, &session.ValidationError{QuestionID: questionID, Reason: fmt.Sprintf("expected an answer to %s", cur.ID)}
	}

	if err := ctl.Collector().RecordRaw(questionID, raw); err != nil {
		return nil, err
	}
	transition, err := ctl.Advance()
	if err != nil {
		return nil, err
	}
	if err := s.save(ctl); err != nil {
		return nil, err
	}

	switch {
	case transition.Branched:
		s.log.Info("Screen threshold met, extending assessment",
			zap.Stringer("session_id", sessionID),
			zap.Float64("partial_score", ctl.PartialScore()),
		)
	case transition.Completed:
		s.log.Info("Assessment flow complete", zap.Stringer("session_id", sessionID), zap.Int("answers", len(ctl.Session().Answers)))
	}
	return view(ctl), nil
}

// GoBack steps the session back one question. At the first question it is a no-op.
func (s *assessmentService) GoBack(sessionID uuid.UUID) (*models.SessionView, error) {
	ctl, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if ctl.Session().Status == models.SessionStatusSubmitted {
		return nil, ErrSessionSubmitted
	}
	if _, moved := ctl.Back(); moved {
		if err := s.save(ctl); err != nil {
			return nil, err
		}
	}
	return view(ctl), nil
}

func (s *assessmentService) GetSession(sessionID uuid.UUID) (*models.SessionView, error) {
	ctl, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	return view(ctl), nil
}

func (s *assessmentService) acquire(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *assessmentService) release(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

// CompleteAssessment scores a completed session, runs the analysis and stores the result.
// On failure the session keeps its answers so the caller can submit again.
func (s *assessmentService) CompleteAssessment(ctx context.Context, sessionID uuid.UUID) (*models.AssessmentResult, error) {
	if !s.acquire(sessionID) {
		return nil, ErrSubmissionInProgress
	}
	defer s.release(sessionID)

	ctl, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	sess := ctl.Session()
	if sess.Status == models.SessionStatusSubmitted {
		return nil, ErrSessionSubmitted
	}
	if !ctl.Completed() {
		return nil, ErrAssessmentIncomplete
	}

	q := ctl.Questionnaire()
	active := ctl.ActiveQuestions()
	sess.Answers = ctl.FinalAnswers()
	result := scoring.Evaluate(q, active, sess.Answers)

	analysis, err := s.analysis.Analyze(ctx, analysisRequest(q, active, sess, result))
	if err != nil {
		s.log.Error("Analysis failed", zap.Stringer("session_id", sessionID), zap.String("provider", s.analysis.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	applyAnalysis(result, analysis, sess.Language)

	if sess.Guest {
		s.guests.Put(sess.UserID, result)
	} else {
		rec, err := models.NewAssessmentRecord(sess, result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result of session %s: %w", sessionID, err)
		}
		if err := s.results.CreateAssessmentRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to store result of session %s: %w", sessionID, err)
		}
		result.RecordID = rec.ID
	}

	sess.Status = models.SessionStatusSubmitted
	if err := s.save(ctl); err != nil {
		// The result is already stored.
		s.log.Error("Failed to mark session submitted", zap.Stringer("session_id", sessionID), zap.Error(err))
	}

	s.log.Info("Assessment submitted",
		zap.Stringer("session_id", sessionID),
		zap.String("user_id", sess.UserID),
		zap.String("questionnaire_id", q.ID),
		zap.Float64("total_score", result.TotalScore),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Strings("risk_factors", result.RiskFactors),
		zap.Uint("record_id", result.RecordID),
	)
	return result, nil
}

func analysisRequest(q *models.Questionnaire, active []models.Question, sess *models.AssessmentSession, result *models.AssessmentResult) models.AnalysisRequest {
	req := models.AnalysisRequest{
		QuestionnaireID: q.ID,
		Title:           q.Title.In(sess.Language),
		Language:        sess.Language,
		Items:           []models.AnsweredItem{},
		TotalScore:      result.TotalScore,
		MaxScore:        result.MaxScore,
		Percentage:      result.Percentage,
		RiskLevel:       result.RiskLevel,
		RiskFactors:     result.RiskFactors,
	}
	for i := range active {
		a, ok := sess.Answer(active[i].ID)
		if !ok {
			continue
		}
		req.Items = append(req.Items, models.AnsweredItem{
			QuestionID: a.QuestionID,
			Question:   active[i].Prompt.In(sess.Language),
			Answer:     a.DisplayText(&active[i], sess.Language),
			Score:      scoring.ScoreAnswer(&active[i], a.Value),
		})
	}
	return req
}

func applyAnalysis(result *models.AssessmentResult, analysis *models.AnalysisResult, lang models.Language) {
	result.Analysis = analysis
	result.Summary = analysis.Summary.In(lang)
	result.Recommendations = make([]string, 0, len(analysis.Recommendations))
	for _, r := range analysis.Recommendations {
		if text := r.In(lang); text != "" {
			result.Recommendations = append(result.Recommendations, text)
		}
	}
}

func (s *assessmentService) GetResult(ctx context.Context, resultID uint) (*models.AssessmentResult, error) {
	rec, err := s.results.GetAssessmentRecordByID(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result %d: %w", resultID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %d", ErrResultNotFound, resultID)
	}
	return rec.DecodeResult()
}

// ListResults returns the user's results, newest first. Guests get their unexpired in-memory results.
func (s *assessmentService) ListResults(ctx context.Context, userID string) ([]*models.AssessmentResult, error) {
	if utils.IsGuestID(userID) {
		return s.guests.List(userID), nil
	}
	recs, err := s.results.GetAssessmentRecordsByUserID(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for userID %s: %w", userID, err)
	}
	out := make([]*models.AssessmentResult, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.DecodeResult()
		if err != nil {
			s.log.Warn("Skipping undecodable record", zap.Uint("record_id", rec.ID), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *assessmentService) GetGuestResult(guestID, questionnaireID string) (*models.AssessmentResult, error) {
	r, ok := s.guests.Get(guestID, questionnaireID)
	if !ok {
		return nil, fmt.Errorf("%w: guest %s, questionnaire %s", ErrResultNotFound, guestID, questionnaireID)
	}
	return r, nil
}

// ClearGuestResults ends a guest session: its results and open sessions are dropped.
func (s *assessmentService) ClearGuestResults(guestID string) int {
	results := s.guests.Clear(guestID)
	sessions := s.sessions.DeleteByUser(guestID)
	s.log.Info("Cleared guest data", zap.String("guest_id", guestID), zap.Int("results", results), zap.Int("sessions", sessions))
	return results
}
