package scoring

import (
	"encoding/json"
	"testing"

	"healthscreen/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(v float64) *float64 { return &v }

func choiceQuestion(id string, scores ...float64) models.Question {
	q := models.Question{ID: id, Kind: models.InputSingleChoice, Required: true, Prompt: models.LocalizedText{models.LanguageEnglish: id}}
	for i, s := range scores {
		q.Choices = append(q.Choices, models.Choice{Value: string(rune('0' + i)), Score: pts(s)})
	}
	return q
}

func TestScoreAnswer(t *testing.T) {
	single := choiceQuestion("q1", 0, 1, 2, 3)
	multi := models.Question{ID: "m", Kind: models.InputMultiChoice, Choices: []models.Choice{
		{Value: "a", Score: pts(1)}, {Value: "b", Score: pts(2)}, {Value: "c"}, {Value: "d", Score: pts(4)},
	}}
	numeric := models.Question{ID: "n", Kind: models.InputNumeric, Ranges: []models.NumericRange{
		{Min: 30, Max: 960, Score: 0}, {Min: 10, Max: 30, Score: 1}, {Min: 0, Max: 10, Score: 2},
	}}

	t.Run("single choice scores the selected option", func(t *testing.T) {
		assert.Equal(t, 2.0, ScoreAnswer(&single, models.ChoiceValue{Choice: "2"}))
		assert.Equal(t, 0.0, ScoreAnswer(&single, models.ChoiceValue{Choice: "0"}))
	})

	t.Run("unknown choice scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, ScoreAnswer(&single, models.ChoiceValue{Choice: "9"}))
	})

	t.Run("multi choice is additive and order independent", func(t *testing.T) {
		ab := ScoreAnswer(&multi, models.ChoicesValue{Choices: []string{"a", "b"}})
		ba := ScoreAnswer(&multi, models.ChoicesValue{Choices: []string{"b", "a"}})
		assert.Equal(t, 3.0, ab)
		assert.Equal(t, ab, ba)
		assert.Equal(t, 7.0, ScoreAnswer(&multi, models.ChoicesValue{Choices: []string{"a", "b", "c", "d"}}))
	})

	t.Run("numeric uses first matching inclusive range", func(t *testing.T) {
		assert.Equal(t, 0.0, ScoreAnswer(&numeric, models.NumberValue{Number: 30}))
		assert.Equal(t, 1.0, ScoreAnswer(&numeric, models.NumberValue{Number: 10}))
		assert.Equal(t, 2.0, ScoreAnswer(&numeric, models.NumberValue{Number: 9.5}))
		assert.Equal(t, 0.0, ScoreAnswer(&numeric, models.NumberValue{Number: 2000}))
	})

	t.Run("text scores zero", func(t *testing.T) {
		text := models.Question{ID: "t", Kind: models.InputText}
		assert.Equal(t, 0.0, ScoreAnswer(&text, models.TextValue{Text: "hello"}))
	})
}

func TestMaxScore(t *testing.T) {
	single := choiceQuestion("q1", 0, 1, 2, 3)
	assert.Equal(t, 3.0, MaxScore(&single))

	multi := models.Question{Kind: models.InputMultiChoice, Choices: []models.Choice{
		{Value: "a", Score: pts(2)}, {Value: "b", Score: pts(-1)}, {Value: "c", Score: pts(2)},
	}}
	assert.Equal(t, 4.0, MaxScore(&multi))

	numeric := models.Question{Kind: models.InputNumeric, Ranges: []models.NumericRange{{Min: 0, Max: 1, Score: 2}, {Min: 2, Max: 3, Score: 5}}}
	assert.Equal(t, 5.0, MaxScore(&numeric))

	text := models.Question{Kind: models.InputText}
	assert.Equal(t, 0.0, MaxScore(&text))
}

func TestClassify(t *testing.T) {
	bands := models.RiskBands{Medium: 5, High: 10, VeryHigh: 15}

	cases := []struct {
		score float64
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{4.9, models.RiskLow},
		{5, models.RiskMedium},
		{9, models.RiskMedium},
		{10, models.RiskHigh},
		{15, models.RiskVeryHigh},
		{27, models.RiskVeryHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(bands, tc.score), "score %v", tc.score)
	}

	t.Run("monotonic", func(t *testing.T) {
		prev := -1
		for s := 0.0; s <= 30; s += 0.5 {
			rank := Classify(bands, s).Rank()
			assert.GreaterOrEqual(t, rank, prev)
			prev = rank
		}
	})

	t.Run("no bands is low", func(t *testing.T) {
		assert.Equal(t, models.RiskLow, Classify(models.RiskBands{}, 100))
	})
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(5, 0))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 100, Percentage(12, 10))
	assert.Equal(t, 0, Percentage(-2, 10))
}

func TestInterpret(t *testing.T) {
	interps := []models.Interpretation{
		{Min: 0, Label: models.LocalizedText{models.LanguageEnglish: "minimal"}},
		{Min: 5, Label: models.LocalizedText{models.LanguageEnglish: "mild"}},
		{Min: 10, Label: models.LocalizedText{models.LanguageEnglish: "moderate"}},
	}
	assert.Equal(t, "minimal", Interpret(interps, 4).In(models.LanguageEnglish))
	assert.Equal(t, "mild", Interpret(interps, 5).In(models.LanguageEnglish))
	assert.Equal(t, "moderate", Interpret(interps, 30).In(models.LanguageEnglish))
	assert.Nil(t, Interpret(nil, 3))
}

func testQuestionnaire() *models.Questionnaire {
	q1 := choiceQuestion("q1", 0, 1, 2, 3)
	q2 := choiceQuestion("q2", 0, 1, 2, 3)
	q2.Weight = 2
	q3 := choiceQuestion("q3", 0, 1)
	q3.RiskFactors = []string{"flag"}
	return &models.Questionnaire{
		ID:        "test",
		Scoring:   models.ScoringSum,
		Bands:     models.RiskBands{Medium: 3, High: 6, VeryHigh: 9},
		Questions: []models.Question{q1, q2, q3},
	}
}

func answer(q *models.Questionnaire, id, value string) models.Answer {
	question, _ := q.Question(id)
	v := models.ChoiceValue{Choice: value}
	return models.Answer{QuestionID: id, Value: v, Score: ScoreAnswer(question, v)}
}

func TestEvaluate(t *testing.T) {
	qn := testQuestionnaire()

	t.Run("weighted total, max and percentage", func(t *testing.T) {
		answers := []models.Answer{answer(qn, "q1", "1"), answer(qn, "q2", "2"), answer(qn, "q3", "0")}
		r := Evaluate(qn, qn.Questions, answers)
		assert.Equal(t, 5.0, r.TotalScore)
		assert.Equal(t, 10.0, r.MaxScore)
		assert.Equal(t, 50, r.Percentage)
		assert.Equal(t, models.RiskMedium, r.RiskLevel)
		assert.Empty(t, r.RiskFactors)
	})

	t.Run("total is independent of submission order", func(t *testing.T) {
		a := []models.Answer{answer(qn, "q1", "3"), answer(qn, "q2", "1"), answer(qn, "q3", "1")}
		b := []models.Answer{a[2], a[0], a[1]}
		assert.Equal(t, Evaluate(qn, qn.Questions, a).TotalScore, Evaluate(qn, qn.Questions, b).TotalScore)
	})

	t.Run("answers outside the active set are ignored", func(t *testing.T) {
		answers := []models.Answer{answer(qn, "q1", "1"), answer(qn, "q2", "3")}
		r := Evaluate(qn, qn.Questions[:1], answers)
		assert.Equal(t, 1.0, r.TotalScore)
		assert.Equal(t, 3.0, r.MaxScore)
	})

	t.Run("risk factors surface regardless of level", func(t *testing.T) {
		answers := []models.Answer{answer(qn, "q1", "0"), answer(qn, "q2", "0"), answer(qn, "q3", "1")}
		r := Evaluate(qn, qn.Questions, answers)
		assert.Equal(t, models.RiskLow, r.RiskLevel)
		assert.Equal(t, []string{"flag"}, r.RiskFactors)
	})

	t.Run("classify_on restricts classification", func(t *testing.T) {
		restricted := *qn
		restricted.ClassifyOn = []string{"q1"}
		answers := []models.Answer{answer(qn, "q1", "1"), answer(qn, "q2", "3")}
		r := Evaluate(&restricted, restricted.Questions, answers)
		assert.Equal(t, 7.0, r.TotalScore)
		assert.Equal(t, models.RiskLow, r.RiskLevel)
	})

	t.Run("serialized answers reload to the same total", func(t *testing.T) {
		answers := []models.Answer{answer(qn, "q1", "2"), answer(qn, "q2", "3"), answer(qn, "q3", "1")}
		data, err := json.Marshal(answers)
		require.NoError(t, err)
		var reloaded []models.Answer
		require.NoError(t, json.Unmarshal(data, &reloaded))
		assert.Equal(t, Evaluate(qn, qn.Questions, answers).TotalScore, Evaluate(qn, qn.Questions, reloaded).TotalScore)
	})
}

func TestEvaluate_Tally(t *testing.T) {
	qn := &models.Questionnaire{
		ID:         "elements",
		Scoring:    models.ScoringTally,
		Categories: []string{"earth", "water", "wind", "fire"},
	}
	for _, id := range []string{"e1", "e2", "e3", "e4"} {
		qn.Questions = append(qn.Questions, models.Question{ID: id, Kind: models.InputSingleChoice, Choices: []models.Choice{
			{Value: "a", Category: "earth"}, {Value: "b", Category: "water"}, {Value: "c", Category: "wind"}, {Value: "d", Category: "fire"},
		}})
	}
	pick := func(id, v string) models.Answer {
		return models.Answer{QuestionID: id, Value: models.ChoiceValue{Choice: v}}
	}

	t.Run("dominant category has the highest count", func(t *testing.T) {
		r := Evaluate(qn, qn.Questions, []models.Answer{pick("e1", "d"), pick("e2", "d"), pick("e3", "a"), pick("e4", "b")})
		assert.Equal(t, "fire", r.DominantCategory)
		assert.Equal(t, map[string]int{"earth": 1, "water": 1, "wind": 0, "fire": 2}, r.Tally)
		assert.Equal(t, models.RiskLow, r.RiskLevel)
	})

	t.Run("ties go to the earlier declared category", func(t *testing.T) {
		r := Evaluate(qn, qn.Questions, []models.Answer{pick("e1", "d"), pick("e2", "b"), pick("e3", "d"), pick("e4", "b")})
		assert.Equal(t, "water", r.DominantCategory)
	})

	t.Run("nothing answered", func(t *testing.T) {
		r := Evaluate(qn, qn.Questions, nil)
		assert.Equal(t, "", r.DominantCategory)
	})
}
