package session

import (
	"time"

	"healthscreen/models"
	"healthscreen/scoring"
)

// Transition describes the effect of Advance.
type Transition struct {
	Next      *models.Question // nil when Completed
	Extended  bool             // the session is on the extended question set
	Branched  bool             // this step moved from the screen into the extended set
	Completed bool
}

// Controller drives a session through its questionnaire. Branching instruments start on a
// screening prefix and only extend into the full list when the prefix's partial score meets
// the threshold.
type Controller struct {
	q *models.Questionnaire
	s *models.AssessmentSession
}

// NewController binds q and s and sets the initial stage of a fresh session.
func NewController(q *models.Questionnaire, s *models.AssessmentSession) *Controller {
	if s.Stage == "" {
		if q.Branch != nil {
			s.Stage = models.StageInitialScreen
		} else {
			s.Stage = models.StageInProgress
		}
	}
	if s.Status == "" {
		s.Status = models.SessionStatusInProgress
	}
	return &Controller{q: q, s: s}
}

// Collector returns a collector restricted to the controller's active questions.
func (c *Controller) Collector() *Collector {
	return NewCollector(c.s, c)
}

// Questionnaire returns the bound questionnaire.
func (c *Controller) Questionnaire() *models.Questionnaire { return c.q }

// Session returns the bound session.
func (c *Controller) Session() *models.AssessmentSession { return c.s }

// ActiveQuestions returns the screen while a branching session is not extended, else every question.
func (c *Controller) ActiveQuestions() []models.Question {
	if c.q.Branch != nil && !c.s.Extended {
		return c.q.Questions[:c.q.Branch.ScreenSize]
	}
	return c.q.Questions
}

// Current returns the question at the session's position. It reports false once complete.
func (c *Controller) Current() (*models.Question, bool) {
	if c.s.Stage == models.StageComplete {
		return nil, false
	}
	active := c.ActiveQuestions()
	if c.s.Position < 0 || c.s.Position >= len(active) {
		return nil, false
	}
	return &active[c.s.Position], true
}

// Advance moves past the current question. A required question must be answered first.
func (c *Controller) Advance() (Transition, error) {
	cur, ok := c.Current()
	if !ok {
		return Transition{Completed: c.s.Stage == models.StageComplete, Extended: c.s.Extended}, nil
	}
	if _, answered := c.s.Answer(cur.ID); cur.Required && !answered {
		return Transition{}, invalid(cur.ID, "an answer is required")
	}

	active := c.ActiveQuestions()
	if c.s.Position+1 < len(active) {
		c.s.Position++
		c.touch()
		return Transition{Next: &active[c.s.Position], Extended: c.s.Extended}, nil
	}

	if c.s.Stage == models.StageInitialScreen && c.q.Branch != nil {
		if c.PartialScore() >= c.q.Branch.Threshold {
			c.s.Stage = models.StageExtendedScreen
			c.s.Extended = true
			c.s.Position = c.q.Branch.ScreenSize
			c.touch()
			return Transition{Next: &c.q.Questions[c.s.Position], Extended: true, Branched: true}, nil
		}
	}

	c.complete()
	return Transition{Extended: c.s.Extended, Completed: true}, nil
}

// PartialScore is the weighted score over exactly the screening questions.
func (c *Controller) PartialScore() float64 {
	if c.q.Branch == nil {
		return 0
	}
	screen := c.q.Questions[:c.q.Branch.ScreenSize]
	return scoring.Evaluate(c.q, screen, c.s.Answers).TotalScore
}

// Back steps to the previous question and returns it. It reports false when nothing moved.
// Stepping back from the first extended question returns to the end of the screen, and stepping
// back from a completed session reopens it on its last question.
func (c *Controller) Back() (*models.Question, bool) {
	switch {
	case c.s.Status == models.SessionStatusSubmitted:
		return nil, false
	case c.s.Stage == models.StageComplete:
		c.reopen()
	case c.s.Position <= 0:
		return nil, false
	case c.s.Stage == models.StageExtendedScreen && c.q.Branch != nil && c.s.Position == c.q.Branch.ScreenSize:
		c.s.Stage = models.StageInitialScreen
		c.s.Extended = false
		c.s.Position = c.q.Branch.ScreenSize - 1
	default:
		c.s.Position--
	}
	c.touch()
	return c.Current()
}

// FinalAnswers returns the stored answers that belong to the active question set, in question
// order. Answers left over from an extended set the user stepped back out of are dropped.
func (c *Controller) FinalAnswers() []models.Answer {
	active := c.ActiveQuestions()
	out := make([]models.Answer, 0, len(active))
	for i := range active {
		if a, ok := c.s.Answer(active[i].ID); ok {
			out = append(out, a)
		}
	}
	return out
}

// Completed reports whether the flow has finished.
func (c *Controller) Completed() bool {
	return c.s.Stage == models.StageComplete
}

func (c *Controller) complete() {
	now := time.Now()
	c.s.Stage = models.StageComplete
	c.s.Status = models.SessionStatusCompleted
	c.s.CompletedAt = &now
	c.s.UpdatedAt = now
}

func (c *Controller) reopen() {
	switch {
	case c.s.Extended:
		c.s.Stage = models.StageExtendedScreen
	case c.q.Branch != nil:
		c.s.Stage = models.StageInitialScreen
	default:
		c.s.Stage = models.StageInProgress
	}
	c.s.Status = models.SessionStatusInProgress
	c.s.CompletedAt = nil
	if last := len(c.ActiveQuestions()) - 1; c.s.Position > last {
		c.s.Position = last
	}
}

func (c *Controller) touch() {
	c.s.UpdatedAt = time.Now()
}
