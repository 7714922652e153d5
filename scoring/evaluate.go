package scoring

import (
	"time"

	"healthscreen/models"
)

// Evaluate scores the answers that belong to the active question set. Answers to questions outside
// the set (for example extended PHQ items left over after stepping back to the screen) are ignored.
// The result carries no analysis; the caller adds recommendations and a summary.
func Evaluate(qn *models.Questionnaire, active []models.Question, answers []models.Answer) *models.AssessmentResult {
	byID := make(map[string]models.Answer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}
	classifyOn := make(map[string]bool, len(qn.ClassifyOn))
	for _, id := range qn.ClassifyOn {
		classifyOn[id] = true
	}

	result := &models.AssessmentResult{
		QuestionnaireID: qn.ID,
		RiskFactors:     []string{},
		Recommendations: []string{},
		CreatedAt:       time.Now(),
	}
	var classified float64
	seenTags := make(map[string]bool)
	tally := make(map[string]int)

	for i := range active {
		q := &active[i]
		weight := q.EffectiveWeight()
		result.MaxScore += MaxScore(q) * weight

		a, ok := byID[q.ID]
		if !ok || a.Value == nil {
			continue
		}
		raw := ScoreAnswer(q, a.Value)
		result.TotalScore += raw * weight
		if classifyOn[q.ID] {
			classified += raw * weight
		}
		if q.TriggersRisk(raw) {
			for _, tag := range q.RiskFactors {
				if !seenTags[tag] {
					seenTags[tag] = true
					result.RiskFactors = append(result.RiskFactors, tag)
				}
			}
		}
		if qn.Scoring == models.ScoringTally {
			for _, category := range categoriesOf(q, a.Value) {
				tally[category]++
			}
		}
	}

	if len(qn.ClassifyOn) == 0 {
		classified = result.TotalScore
	}
	result.Percentage = Percentage(result.TotalScore, result.MaxScore)
	result.RiskLevel = Classify(qn.Bands, classified)
	result.Interpretation = Interpret(qn.Interpretations, classified)

	if qn.Scoring == models.ScoringTally {
		result.Tally = make(map[string]int, len(qn.Categories))
		for _, c := range qn.Categories {
			result.Tally[c] = tally[c]
		}
		result.DominantCategory = Dominant(qn.Categories, tally)
	}
	return result
}

// Dominant returns the category with the highest count. Ties go to the category declared first.
// It returns "" when nothing was counted.
func Dominant(categories []string, tally map[string]int) string {
	best, bestCount := "", 0
	for _, c := range categories {
		if n := tally[c]; n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func categoriesOf(q *models.Question, value models.AnswerValue) []string {
	var selected []string
	switch v := value.(type) {
	case models.ChoiceValue:
		selected = []string{v.Choice}
	case models.ChoicesValue:
		selected = v.Choices
	default:
		return nil
	}
	var out []string
	for _, s := range selected {
		if c, ok := q.Choice(s); ok && c.Category != "" {
			out = append(out, c.Category)
		}
	}
	return out
}
