package models

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the AnswerValue variants on the wire.
type ValueKind string

const (
	ValueKindChoice  ValueKind = "choice"
	ValueKindChoices ValueKind = "choices"
	ValueKindNumber  ValueKind = "number"
	ValueKindText    ValueKind = "text"
)

// AnswerValue is the raw value a user supplied. The set of implementations is closed:
// ChoiceValue, ChoicesValue, NumberValue and TextValue.
type AnswerValue interface {
	Kind() ValueKind
	isAnswerValue()
}

// ChoiceValue answers single_choice, yes_no and rating questions.
type ChoiceValue struct {
	Choice string
}

// ChoicesValue answers multi_choice questions.
type ChoicesValue struct {
	Choices []string
}

// NumberValue answers numeric questions.
type NumberValue struct {
	Number float64
}

// TextValue answers free-text questions.
type TextValue struct {
	Text string
}

func (ChoiceValue) Kind() ValueKind  { return ValueKindChoice }
func (ChoicesValue) Kind() ValueKind { return ValueKindChoices }
func (NumberValue) Kind() ValueKind  { return ValueKindNumber }
func (TextValue) Kind() ValueKind    { return ValueKindText }

func (ChoiceValue) isAnswerValue()  {}
func (ChoicesValue) isAnswerValue() {}
func (NumberValue) isAnswerValue()  {}
func (TextValue) isAnswerValue()    {}

// ValueKindFor returns the value variant a question of the given input kind accepts.
func ValueKindFor(kind InputKind) ValueKind {
	switch kind {
	case InputMultiChoice:
		return ValueKindChoices
	case InputNumeric:
		return ValueKindNumber
	case InputText:
		return ValueKindText
	default:
		return ValueKindChoice
	}
}

// Answer is a scored response to one question.
type Answer struct {
	QuestionID string
	Value      AnswerValue
	Score      float64
}

type answerJSON struct {
	QuestionID string          `json:"question_id"`
	Kind       ValueKind       `json:"kind"`
	Value      json.RawMessage `json:"value"`
	Score      float64         `json:"score"`
}

// MarshalJSON encodes the answer with an explicit kind discriminator.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Value == nil {
		return nil, fmt.Errorf("answer for question %q has no value", a.QuestionID)
	}
	var raw any
	switch v := a.Value.(type) {
	case ChoiceValue:
		raw = v.Choice
	case ChoicesValue:
		raw = v.Choices
	case NumberValue:
		raw = v.Number
	case TextValue:
		raw = v.Text
	}
	value, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{
		QuestionID: a.QuestionID,
		Kind:       a.Value.Kind(),
		Value:      value,
		Score:      a.Score,
	})
}

// UnmarshalJSON decodes an answer written by MarshalJSON.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var aux answerJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var value AnswerValue
	switch aux.Kind {
	case ValueKindChoice:
		var s string
		if err := json.Unmarshal(aux.Value, &s); err != nil {
			return fmt.Errorf("decode choice answer for %q: %w", aux.QuestionID, err)
		}
		value = ChoiceValue{Choice: s}
	case ValueKindChoices:
		var ss []string
		if err := json.Unmarshal(aux.Value, &ss); err != nil {
			return fmt.Errorf("decode choices answer for %q: %w", aux.QuestionID, err)
		}
		value = ChoicesValue{Choices: ss}
	case ValueKindNumber:
		var f float64
		if err := json.Unmarshal(aux.Value, &f); err != nil {
			return fmt.Errorf("decode number answer for %q: %w", aux.QuestionID, err)
		}
		value = NumberValue{Number: f}
	case ValueKindText:
		var s string
		if err := json.Unmarshal(aux.Value, &s); err != nil {
			return fmt.Errorf("decode text answer for %q: %w", aux.QuestionID, err)
		}
		value = TextValue{Text: s}
	default:
		return fmt.Errorf("unknown answer kind %q for question %q", aux.Kind, aux.QuestionID)
	}
	*a = Answer{QuestionID: aux.QuestionID, Value: value, Score: aux.Score}
	return nil
}

// DisplayText renders the answer for prompts and exports. Choice values are shown as their
// labels in lang when the question is known.
func (a Answer) DisplayText(q *Question, lang Language) string {
	label := func(v string) string {
		if q != nil {
			if c, ok := q.Choice(v); ok {
				return c.Label.In(lang)
			}
		}
		return v
	}
	switch v := a.Value.(type) {
	case ChoiceValue:
		return label(v.Choice)
	case ChoicesValue:
		out := ""
		for i, c := range v.Choices {
			if i > 0 {
				out += ", "
			}
			out += label(c)
		}
		return out
	case NumberValue:
		return fmt.Sprintf("%g", v.Number)
	case TextValue:
		return v.Text
	}
	return ""
}
