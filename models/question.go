package models

// Language is a supported content language code.
type Language string

const (
	LanguageThai    Language = "th"
	LanguageEnglish Language = "en"
)

// ParseLanguage maps a request language code to a supported Language.
// Unknown or empty codes fall back to def.
func ParseLanguage(code string, def Language) Language {
	switch Language(code) {
	case LanguageThai, LanguageEnglish:
		return Language(code)
	}
	return def
}

// LocalizedText holds one string per language.
type LocalizedText map[Language]string

// In returns the text for lang, falling back to English, then Thai, then whatever is present.
func (t LocalizedText) In(lang Language) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	for _, fallback := range []Language{LanguageEnglish, LanguageThai} {
		if s, ok := t[fallback]; ok && s != "" {
			return s
		}
	}
	for _, s := range t {
		if s != "" {
			return s
		}
	}
	return ""
}

// InputKind defines how a question is answered.
type InputKind string

const (
	InputSingleChoice InputKind = "single_choice" // Radio buttons
	InputMultiChoice  InputKind = "multi_choice"  // Checkboxes
	InputNumeric      InputKind = "numeric"       // Number input scored by ranges
	InputText         InputKind = "text"          // Free text, informational only
	InputYesNo        InputKind = "yes_no"
	InputRating       InputKind = "rating" // Ordered scale rendered as a rating widget
)

// IsChoice reports whether answers of this kind select exactly one choice.
func (k InputKind) IsChoice() bool {
	return k == InputSingleChoice || k == InputYesNo || k == InputRating
}

// TextFormat constrains free-text answers.
type TextFormat string

const TextFormatEmail TextFormat = "email"

// Choice is one selectable option of a choice question.
type Choice struct {
	Value    string        `yaml:"value" json:"value"`
	Label    LocalizedText `yaml:"label" json:"label"`
	Score    *float64      `yaml:"score,omitempty" json:"score,omitempty"`
	Category string        `yaml:"category,omitempty" json:"category,omitempty"` // Tally bucket, e.g. "fire"
}

// Points is the choice's score, 0 when none is defined.
func (c Choice) Points() float64 {
	if c.Score == nil {
		return 0
	}
	return *c.Score
}

// NumericRange maps an inclusive [Min, Max] interval to a fixed score.
type NumericRange struct {
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
	Score float64 `yaml:"score" json:"score"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r NumericRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Question defines one item of a questionnaire. Questions are immutable once the catalog is loaded.
type Question struct {
	ID           string         `yaml:"id" json:"id"`
	Prompt       LocalizedText  `yaml:"prompt" json:"prompt"`
	Kind         InputKind      `yaml:"kind" json:"kind"`
	Choices      []Choice       `yaml:"choices,omitempty" json:"choices,omitempty"`
	Ranges       []NumericRange `yaml:"ranges,omitempty" json:"ranges,omitempty"`
	Min          *float64       `yaml:"min,omitempty" json:"min,omitempty"`
	Max          *float64       `yaml:"max,omitempty" json:"max,omitempty"`
	Format       TextFormat     `yaml:"format,omitempty" json:"format,omitempty"`
	Required     bool           `yaml:"required" json:"required"`
	Weight       float64        `yaml:"weight,omitempty" json:"weight"`
	RiskFactors  []string       `yaml:"risk_factors,omitempty" json:"risk_factors,omitempty"`
	RiskMinScore *float64       `yaml:"risk_min_score,omitempty" json:"risk_min_score,omitempty"`
}

// Choice looks up a choice by its value.
func (q *Question) Choice(value string) (Choice, bool) {
	for _, c := range q.Choices {
		if c.Value == value {
			return c, true
		}
	}
	return Choice{}, false
}

// EffectiveWeight returns the weight, treating an unset weight as 1.
func (q *Question) EffectiveWeight() float64 {
	if q.Weight == 0 {
		return 1
	}
	return q.Weight
}

// TriggersRisk reports whether an answer with the given score raises the question's risk factors.
func (q *Question) TriggersRisk(score float64) bool {
	if len(q.RiskFactors) == 0 {
		return false
	}
	if q.RiskMinScore == nil {
		return score > 0
	}
	return score >= *q.RiskMinScore
}

// ScoringMethod selects how a questionnaire's answers are reduced.
type ScoringMethod string

const (
	ScoringSum   ScoringMethod = "sum"   // Weighted sum, classified into risk bands
	ScoringTally ScoringMethod = "tally" // Count of choice categories, e.g. the elemental quiz
)

// RiskBands are the instrument-specific lower bounds of each level above low.
type RiskBands struct {
	Medium   float64 `yaml:"medium" json:"medium"`
	High     float64 `yaml:"high" json:"high"`
	VeryHigh float64 `yaml:"very_high" json:"very_high"`
}

// IsZero reports whether no bands are configured.
func (b RiskBands) IsZero() bool {
	return b.Medium == 0 && b.High == 0 && b.VeryHigh == 0
}

// Interpretation labels the score band starting at Min (e.g. PHQ-9 "moderately severe").
type Interpretation struct {
	Min   float64       `yaml:"min" json:"min"`
	Label LocalizedText `yaml:"label" json:"label"`
}

// BranchRule extends a screening prefix into the full questionnaire when its partial score
// meets Threshold. Only PHQ-2 → PHQ-9 uses it.
type BranchRule struct {
	ScreenSize int     `yaml:"screen_size" json:"screen_size"`
	Threshold  float64 `yaml:"threshold" json:"threshold"`
}

// Questionnaire is a named, ordered instrument.
type Questionnaire struct {
	ID              string           `yaml:"id" json:"id"`
	Title           LocalizedText    `yaml:"title" json:"title"`
	Description     LocalizedText    `yaml:"description,omitempty" json:"description,omitempty"`
	Scoring         ScoringMethod    `yaml:"scoring,omitempty" json:"scoring"`
	Categories      []string         `yaml:"categories,omitempty" json:"categories,omitempty"`
	Bands           RiskBands        `yaml:"bands,omitempty" json:"bands"`
	ClassifyOn      []string         `yaml:"classify_on,omitempty" json:"classify_on,omitempty"`
	Interpretations []Interpretation `yaml:"interpretations,omitempty" json:"interpretations,omitempty"`
	Branch          *BranchRule      `yaml:"branch,omitempty" json:"branch,omitempty"`
	Questions       []Question       `yaml:"questions" json:"questions"`
}

// Question returns the question with the given id.
func (q *Questionnaire) Question(id string) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// IndexOf returns the position of a question, or -1.
func (q *Questionnaire) IndexOf(id string) int {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return i
		}
	}
	return -1
}

// LocalizedChoice is a choice rendered in one language.
type LocalizedChoice struct {
	Value string   `json:"value"`
	Label string   `json:"label"`
	Score *float64 `json:"score,omitempty"`
}

// LocalizedQuestion is a question rendered in one language for the presentation layer.
type LocalizedQuestion struct {
	ID       string            `json:"id"`
	Order    int               `json:"order"`
	Prompt   string            `json:"prompt"`
	Kind     InputKind         `json:"kind"`
	Choices  []LocalizedChoice `json:"choices,omitempty"`
	Min      *float64          `json:"min,omitempty"`
	Max      *float64          `json:"max,omitempty"`
	Format   TextFormat        `json:"format,omitempty"`
	Required bool              `json:"required"`
	Weight   float64           `json:"weight"`
}

// Localize renders q in lang. order is the question's position in its questionnaire.
func (q *Question) Localize(lang Language, order int) LocalizedQuestion {
	lq := LocalizedQuestion{
		ID:       q.ID,
		Order:    order,
		Prompt:   q.Prompt.In(lang),
		Kind:     q.Kind,
		Min:      q.Min,
		Max:      q.Max,
		Format:   q.Format,
		Required: q.Required,
		Weight:   q.EffectiveWeight(),
	}
	for _, c := range q.Choices {
		lq.Choices = append(lq.Choices, LocalizedChoice{Value: c.Value, Label: c.Label.In(lang), Score: c.Score})
	}
	return lq
}

func (t LocalizedText) clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Clone returns a deep copy of the question.
func (q *Question) Clone() Question {
	c := *q
	c.Prompt = q.Prompt.clone()
	c.Min, c.Max, c.RiskMinScore = cloneFloat(q.Min), cloneFloat(q.Max), cloneFloat(q.RiskMinScore)
	c.RiskFactors = append([]string(nil), q.RiskFactors...)
	c.Ranges = append([]NumericRange(nil), q.Ranges...)
	if q.Choices != nil {
		c.Choices = make([]Choice, len(q.Choices))
		for i, ch := range q.Choices {
			ch.Label = ch.Label.clone()
			ch.Score = cloneFloat(ch.Score)
			c.Choices[i] = ch
		}
	}
	return c
}

// Clone returns a deep copy of the questionnaire.
func (q *Questionnaire) Clone() *Questionnaire {
	c := *q
	c.Title = q.Title.clone()
	c.Description = q.Description.clone()
	c.Categories = append([]string(nil), q.Categories...)
	c.ClassifyOn = append([]string(nil), q.ClassifyOn...)
	if q.Interpretations != nil {
		c.Interpretations = make([]Interpretation, len(q.Interpretations))
		for i, in := range q.Interpretations {
			in.Label = in.Label.clone()
			c.Interpretations[i] = in
		}
	}
	if q.Branch != nil {
		b := *q.Branch
		c.Branch = &b
	}
	c.Questions = make([]Question, len(q.Questions))
	for i := range q.Questions {
		c.Questions[i] = q.Questions[i].Clone()
	}
	return &c
}
