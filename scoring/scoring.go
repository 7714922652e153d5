// Package scoring reduces a set of answers into a total, a risk level and triggered risk factors.
// Everything here is pure.
package scoring

import (
	"math"

	"healthscreen/models"
)

// ScoreAnswer returns the raw, unweighted score of value as an answer to q.
func ScoreAnswer(q *models.Question, value models.AnswerValue) float64 {
	switch v := value.(type) {
	case models.ChoiceValue:
		c, ok := q.Choice(v.Choice)
		if !ok {
			return 0
		}
		return c.Points()
	case models.ChoicesValue:
		var total float64
		for _, selected := range v.Choices {
			if c, ok := q.Choice(selected); ok {
				total += c.Points()
			}
		}
		return total
	case models.NumberValue:
		for _, r := range q.Ranges {
			if r.Contains(v.Number) {
				return r.Score
			}
		}
		return 0
	case models.TextValue:
		return 0
	case nil:
		return 0
	default:
		panic("scoring: unhandled answer value type")
	}
}

// MaxScore returns the highest raw score q can contribute.
func MaxScore(q *models.Question) float64 {
	var top float64
	switch q.Kind {
	case models.InputMultiChoice:
		for _, c := range q.Choices {
			if p := c.Points(); p > 0 {
				top += p
			}
		}
	case models.InputNumeric:
		for _, r := range q.Ranges {
			if r.Score > top {
				top = r.Score
			}
		}
	case models.InputText:
	default:
		for _, c := range q.Choices {
			if p := c.Points(); p > top {
				top = p
			}
		}
	}
	return top
}

// Classify maps a score to a risk level using the instrument's lower bounds.
// An instrument without bands always classifies as low.
func Classify(bands models.RiskBands, score float64) models.RiskLevel {
	if bands.IsZero() {
		return models.RiskLow
	}
	switch {
	case score >= bands.VeryHigh:
		return models.RiskVeryHigh
	case score >= bands.High:
		return models.RiskHigh
	case score >= bands.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Percentage returns round(total/max*100) clamped to [0,100]; 0 when max is not positive.
func Percentage(total, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	p := math.Round(total / maxScore * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

// Interpret returns the label of the highest interpretation whose lower bound is at most score.
func Interpret(interpretations []models.Interpretation, score float64) models.LocalizedText {
	var (
		label models.LocalizedText
		best  = math.Inf(-1)
	)
	for _, in := range interpretations {
		if in.Min <= score && in.Min >= best {
			best = in.Min
			label = in.Label
		}
	}
	return label
}
