package catalog

import (
	"errors"
	"fmt"

	"healthscreen/models"
)

// Validate checks a questionnaire definition for internal consistency.
func Validate(q *models.Questionnaire) error {
	if q.ID == "" {
		return errors.New("questionnaire id is empty")
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("questionnaire %q has no questions", q.ID)
	}
	switch q.Scoring {
	case models.ScoringSum, models.ScoringTally:
	default:
		return fmt.Errorf("questionnaire %q: unknown scoring method %q", q.ID, q.Scoring)
	}
	if q.Scoring == models.ScoringTally && len(q.Categories) == 0 {
		return fmt.Errorf("questionnaire %q: tally scoring needs categories", q.ID)
	}
	if b := q.Bands; !b.IsZero() && (b.Medium > b.High || b.High > b.VeryHigh) {
		return fmt.Errorf("questionnaire %q: risk bands must be ascending, got %+v", q.ID, b)
	}
	if q.Branch != nil && (q.Branch.ScreenSize < 1 || q.Branch.ScreenSize >= len(q.Questions)) {
		return fmt.Errorf("questionnaire %q: branch screen size %d out of range [1,%d)", q.ID, q.Branch.ScreenSize, len(q.Questions))
	}

	categories := make(map[string]bool, len(q.Categories))
	for _, c := range q.Categories {
		categories[c] = true
	}
	ids := make(map[string]bool, len(q.Questions))
	for i := range q.Questions {
		question := &q.Questions[i]
		if question.ID == "" {
			return fmt.Errorf("questionnaire %q: question %d has no id", q.ID, i+1)
		}
		if ids[question.ID] {
			return fmt.Errorf("questionnaire %q: duplicate question id %q", q.ID, question.ID)
		}
		ids[question.ID] = true
		if err := validateQuestion(question, q.Scoring, categories); err != nil {
			return fmt.Errorf("questionnaire %q: question %q: %w", q.ID, question.ID, err)
		}
	}
	for _, id := range q.ClassifyOn {
		if !ids[id] {
			return fmt.Errorf("questionnaire %q: classify_on references unknown question %q", q.ID, id)
		}
	}
	return nil
}

func validateQuestion(q *models.Question, scoring models.ScoringMethod, categories map[string]bool) error {
	if len(q.Prompt) == 0 {
		return errors.New("prompt is empty")
	}
	if q.Weight < 0 {
		return fmt.Errorf("negative weight %v", q.Weight)
	}
	if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
		return fmt.Errorf("min %v exceeds max %v", *q.Min, *q.Max)
	}
	switch q.Kind {
	case models.InputSingleChoice, models.InputMultiChoice, models.InputYesNo, models.InputRating:
		if len(q.Choices) == 0 {
			return fmt.Errorf("%s question has no choices", q.Kind)
		}
		values := make(map[string]bool, len(q.Choices))
		for _, c := range q.Choices {
			if c.Value == "" {
				return errors.New("choice with empty value")
			}
			if values[c.Value] {
				return fmt.Errorf("duplicate choice value %q", c.Value)
			}
			values[c.Value] = true
			if scoring == models.ScoringTally && c.Category != "" && !categories[c.Category] {
				return fmt.Errorf("choice %q has undeclared category %q", c.Value, c.Category)
			}
		}
	case models.InputNumeric:
		for _, r := range q.Ranges {
			if r.Min > r.Max {
				return fmt.Errorf("range min %v exceeds max %v", r.Min, r.Max)
			}
		}
	case models.InputText:
		if q.Format != "" && q.Format != models.TextFormatEmail {
			return fmt.Errorf("unknown text format %q", q.Format)
		}
	default:
		return fmt.Errorf("unknown input kind %q", q.Kind)
	}
	return nil
}
