package catalog

import (
	"testing"
	"testing/fstest"

	"healthscreen/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	t.Run("ships every instrument in declaration order", func(t *testing.T) {
		assert.Equal(t, []string{"phq-9", "8q", "audit", "dast-10", "pc-ptsd-5", "gpaq", "thai-cv-risk", "elemental"}, c.IDs())
		assert.Len(t, c.List(), 8)
	})

	t.Run("phq-9 branches after two questions", func(t *testing.T) {
		q, ok := c.Questionnaire("phq-9")
		require.True(t, ok)
		require.NotNil(t, q.Branch)
		assert.Equal(t, 2, q.Branch.ScreenSize)
		assert.Equal(t, 3.0, q.Branch.Threshold)
		assert.Len(t, q.Questions, 9)
		item9, _ := q.Question("phq-9")
		assert.Equal(t, []string{"self-harm-thoughts"}, item9.RiskFactors)
	})

	t.Run("8q scores suicide-8 yes at ten", func(t *testing.T) {
		q, ok := c.Questionnaire("8q")
		require.True(t, ok)
		item, ok := q.Question("suicide-8")
		require.True(t, ok)
		yes, ok := item.Choice("yes")
		require.True(t, ok)
		assert.Equal(t, 10.0, yes.Points())
	})

	t.Run("callers cannot change the catalog", func(t *testing.T) {
		q, ok := c.Questionnaire("8q")
		require.True(t, ok)
		q.Title[models.LanguageEnglish] = "changed"
		q.Bands.High = 99
		q.Questions[0].Prompt[models.LanguageEnglish] = "changed"
		*q.Questions[0].Choices[0].Score = 42
		q.Questions = q.Questions[:1]

		again, ok := c.Questionnaire("8q")
		require.True(t, ok)
		assert.NotEqual(t, "changed", again.Title.In(models.LanguageEnglish))
		assert.NotEqual(t, 99.0, again.Bands.High)
		assert.NotEqual(t, "changed", again.Questions[0].Prompt.In(models.LanguageEnglish))
		assert.NotEqual(t, 42.0, again.Questions[0].Choices[0].Points())
		assert.Greater(t, len(again.Questions), 1)

		listed := c.List()[1]
		require.Equal(t, "8q", listed.ID)
		listed.Questions[0].ID = "changed"
		again, _ = c.Questionnaire("8q")
		assert.NotEqual(t, "changed", again.Questions[0].ID)
	})

	t.Run("dast-10 item 3 is reverse scored", func(t *testing.T) {
		q, _ := c.Questionnaire("dast-10")
		item, _ := q.Question("dast-3")
		no, _ := item.Choice("no")
		yes, _ := item.Choice("yes")
		assert.Equal(t, 1.0, no.Points())
		assert.Equal(t, 0.0, yes.Points())
	})

	t.Run("every question has both languages", func(t *testing.T) {
		for _, q := range c.List() {
			assert.NotEmpty(t, q.Title[models.LanguageThai], q.ID)
			assert.NotEmpty(t, q.Title[models.LanguageEnglish], q.ID)
			for _, question := range q.Questions {
				assert.NotEmpty(t, question.Prompt[models.LanguageThai], question.ID)
				assert.NotEmpty(t, question.Prompt[models.LanguageEnglish], question.ID)
			}
		}
	})
}

func TestQuestions(t *testing.T) {
	c := Default()

	t.Run("localizes in order", func(t *testing.T) {
		qs := c.Questions("phq-9", models.LanguageThai)
		require.Len(t, qs, 9)
		assert.Equal(t, "phq-1", qs[0].ID)
		assert.Equal(t, 1, qs[0].Order)
		assert.Equal(t, "เบื่อ ไม่สนใจอยากทำอะไร", qs[0].Prompt)
		assert.Equal(t, "ไม่มีเลย", qs[0].Choices[0].Label)
	})

	t.Run("unknown id returns an empty list", func(t *testing.T) {
		qs := c.Questions("nope", models.LanguageEnglish)
		assert.NotNil(t, qs)
		assert.Empty(t, qs)
	})
}

const minimal = `
id: demo
title: { en: Demo }
questions:
  - id: q1
    kind: yes_no
    prompt: { en: Question one }
    choices:
      - { value: "no", score: 0, label: { en: "No" } }
      - { value: "yes", score: 1, label: { en: "Yes" } }
  - id: q2
    kind: text
    prompt: { en: Question two }
`

func TestLoad(t *testing.T) {
	t.Run("parses and defaults scoring to sum", func(t *testing.T) {
		c, err := Load(fstest.MapFS{"demo.yaml": {Data: []byte(minimal)}})
		require.NoError(t, err)
		q, ok := c.Questionnaire("demo")
		require.True(t, ok)
		assert.Equal(t, models.ScoringSum, q.Scoring)
		assert.Equal(t, 1.0, q.Questions[0].EffectiveWeight())
	})

	t.Run("later layers override by id", func(t *testing.T) {
		override := `
id: phq-9
title: { en: Replaced }
questions:
  - id: only
    kind: text
    prompt: { en: Only question }
`
		c, err := Load(Embedded(), fstest.MapFS{"phq.yaml": {Data: []byte(override)}, "demo.yaml": {Data: []byte(minimal)}})
		require.NoError(t, err)
		ids := c.IDs()
		assert.Equal(t, "phq-9", ids[0])
		assert.Equal(t, "demo", ids[len(ids)-1])
		q, _ := c.Questionnaire("phq-9")
		assert.Equal(t, "Replaced", q.Title.In(models.LanguageEnglish))
	})

	t.Run("rejects invalid definitions", func(t *testing.T) {
		cases := map[string]string{
			"duplicate question": `
id: bad
title: { en: Bad }
questions:
  - { id: q1, kind: text, prompt: { en: a } }
  - { id: q1, kind: text, prompt: { en: b } }
`,
			"duplicate choice": `
id: bad
title: { en: Bad }
questions:
  - id: q1
    kind: single_choice
    prompt: { en: a }
    choices: [ { value: x, label: { en: x } }, { value: x, label: { en: y } } ]
`,
			"inverted range": `
id: bad
title: { en: Bad }
questions:
  - id: q1
    kind: numeric
    prompt: { en: a }
    ranges: [ { min: 5, max: 1, score: 1 } ]
`,
			"branch too large": `
id: bad
title: { en: Bad }
branch: { screen_size: 1, threshold: 1 }
questions:
  - { id: q1, kind: text, prompt: { en: a } }
`,
			"unknown kind": `
id: bad
title: { en: Bad }
questions:
  - { id: q1, kind: slider, prompt: { en: a } }
`,
		}
		for name, doc := range cases {
			_, err := Load(fstest.MapFS{"bad.yaml": {Data: []byte(doc)}})
			assert.Error(t, err, name)
		}
	})

	t.Run("empty layer fails", func(t *testing.T) {
		_, err := Load(fstest.MapFS{})
		assert.Error(t, err)
	})
}
