// Package session records answers into an assessment session and drives its question flow.
// It performs no I/O.
package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"healthscreen/models"
	"healthscreen/scoring"
)

// ValidationError reports an answer that was rejected. The session is left untouched.
type ValidationError struct {
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %s: %s", e.QuestionID, e.Reason)
}

func invalid(questionID, format string, args ...any) *ValidationError {
	return &ValidationError{QuestionID: questionID, Reason: fmt.Sprintf(format, args...)}
}

// ActiveSet supplies the questions that may currently be answered.
type ActiveSet interface {
	ActiveQuestions() []models.Question
}

// Collector stores one answer per question in a session.
type Collector struct {
	s      *models.AssessmentSession
	active ActiveSet
}

// NewCollector returns a collector writing into s. Only questions in active can be answered.
func NewCollector(s *models.AssessmentSession, active ActiveSet) *Collector {
	return &Collector{s: s, active: active}
}

func (c *Collector) find(questionID string) (*models.Question, bool) {
	questions := c.active.ActiveQuestions()
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], true
		}
	}
	return nil, false
}

// ParseValue converts the raw form used by the HTTP API and the CLI into the value variant the
// question accepts. Blank entries are dropped; a nil value with a nil error means "no answer".
func ParseValue(q *models.Question, raw []string) (models.AnswerValue, error) {
	values := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			values = append(values, r)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	switch q.Kind {
	case models.InputMultiChoice:
		return models.ChoicesValue{Choices: values}, nil
	case models.InputNumeric:
		if len(values) > 1 {
			return nil, invalid(q.ID, "expected a single number")
		}
		f, err := strconv.ParseFloat(values[0], 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid(q.ID, "%q is not a number", values[0])
		}
		return models.NumberValue{Number: f}, nil
	case models.InputText:
		return models.TextValue{Text: strings.Join(values, " ")}, nil
	default:
		if len(values) > 1 {
			return nil, invalid(q.ID, "expected exactly one choice, got %d", len(values))
		}
		return models.ChoiceValue{Choice: values[0]}, nil
	}
}

// RecordRaw parses raw for the question and records it.
func (c *Collector) RecordRaw(questionID string, raw []string) error {
	q, ok := c.find(questionID)
	if !ok {
		return invalid(questionID, "question is not part of the current question set")
	}
	value, err := ParseValue(q, raw)
	if err != nil {
		return err
	}
	return c.record(q, value)
}

// RecordAnswer validates value, scores it and upserts it by question id.
// An empty answer to an optional question removes any stored answer.
func (c *Collector) RecordAnswer(questionID string, value models.AnswerValue) error {
	q, ok := c.find(questionID)
	if !ok {
		return invalid(questionID, "question is not part of the current question set")
	}
	return c.record(q, value)
}

func (c *Collector) record(q *models.Question, value models.AnswerValue) error {
	value, err := normalize(q, value)
	if err != nil {
		return err
	}
	if value == nil {
		if q.Required {
			return invalid(q.ID, "an answer is required")
		}
		c.remove(q.ID)
		return nil
	}

	answer := models.Answer{QuestionID: q.ID, Value: value, Score: scoring.ScoreAnswer(q, value)}
	for i := range c.s.Answers {
		if c.s.Answers[i].QuestionID == q.ID {
			c.s.Answers[i] = answer
			c.s.UpdatedAt = time.Now()
			return nil
		}
	}
	c.s.Answers = append(c.s.Answers, answer)
	c.s.UpdatedAt = time.Now()
	return nil
}

// normalize checks value against the question and returns it in canonical form, or nil when empty.
func normalize(q *models.Question, value models.AnswerValue) (models.AnswerValue, error) {
	if value == nil {
		return nil, nil
	}
	if want := models.ValueKindFor(q.Kind); value.Kind() != want {
		return nil, invalid(q.ID, "expected a %s answer, got %s", want, value.Kind())
	}

	switch v := value.(type) {
	case models.ChoiceValue:
		if v.Choice == "" {
			return nil, nil
		}
		if _, ok := q.Choice(v.Choice); !ok {
			return nil, invalid(q.ID, "unknown choice %q", v.Choice)
		}
		return v, nil
	case models.ChoicesValue:
		seen := make(map[string]bool, len(v.Choices))
		choices := make([]string, 0, len(v.Choices))
		for _, choice := range v.Choices {
			if choice == "" || seen[choice] {
				continue
			}
			if _, ok := q.Choice(choice); !ok {
				return nil, invalid(q.ID, "unknown choice %q", choice)
			}
			seen[choice] = true
			choices = append(choices, choice)
		}
		if len(choices) == 0 {
			return nil, nil
		}
		return models.ChoicesValue{Choices: choices}, nil
	case models.NumberValue:
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return nil, invalid(q.ID, "not a finite number")
		}
		if q.Min != nil && v.Number < *q.Min {
			return nil, invalid(q.ID, "%g is below the minimum of %g", v.Number, *q.Min)
		}
		if q.Max != nil && v.Number > *q.Max {
			return nil, invalid(q.ID, "%g is above the maximum of %g", v.Number, *q.Max)
		}
		return v, nil
	case models.TextValue:
		text := strings.TrimSpace(v.Text)
		if text == "" {
			return nil, nil
		}
		if q.Format == models.TextFormatEmail && !IsValidEmail(text) {
			return nil, invalid(q.ID, "%q is not a valid email address", text)
		}
		return models.TextValue{Text: text}, nil
	}
	return nil, invalid(q.ID, "unsupported answer value")
}

func (c *Collector) remove(questionID string) {
	for i := range c.s.Answers {
		if c.s.Answers[i].QuestionID == questionID {
			c.s.Answers = append(c.s.Answers[:i], c.s.Answers[i+1:]...)
			c.s.UpdatedAt = time.Now()
			return
		}
	}
}

// CurrentAnswer returns the stored answer for a question.
func (c *Collector) CurrentAnswer(questionID string) (models.Answer, bool) {
	return c.s.Answer(questionID)
}

// IsValidEmail is a basic shape check: something before an "@" and a "." somewhere after it.
func IsValidEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || strings.ContainsAny(email, " \t") {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
