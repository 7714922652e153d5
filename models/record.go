package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AssessmentRecord is the stored form of a registered user's submitted assessment.
type AssessmentRecord struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          string         `json:"user_id" gorm:"index;not null"`
	QuestionnaireID string         `json:"questionnaire_id" gorm:"index;not null"`
	Language        Language       `json:"language" gorm:"type:varchar(8)"`
	TotalScore      float64        `json:"total_score"`
	MaxScore        float64        `json:"max_score"`
	Percentage      int            `json:"percentage"`
	RiskLevel       RiskLevel      `json:"risk_level" gorm:"type:varchar(16);index"`
	Answers         datatypes.JSON `json:"answers"`
	Result          datatypes.JSON `json:"result"`
	CreatedAt       time.Time      `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for AssessmentRecord.
func (AssessmentRecord) TableName() string {
	return "assessment_records"
}

// NewAssessmentRecord builds the stored form of a submitted session and its result.
func NewAssessmentRecord(s *AssessmentSession, r *AssessmentResult) (*AssessmentRecord, error) {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	result, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &AssessmentRecord{
		UserID:          s.UserID,
		QuestionnaireID: s.QuestionnaireID,
		Language:        s.Language,
		TotalScore:      r.TotalScore,
		MaxScore:        r.MaxScore,
		Percentage:      r.Percentage,
		RiskLevel:       r.RiskLevel,
		Answers:         datatypes.JSON(answers),
		Result:          datatypes.JSON(result),
	}, nil
}

// DecodeResult returns the stored result with RecordID set.
func (rec *AssessmentRecord) DecodeResult() (*AssessmentResult, error) {
	var r AssessmentResult
	if err := json.Unmarshal(rec.Result, &r); err != nil {
		return nil, fmt.Errorf("decode result of record %d: %w", rec.ID, err)
	}
	r.RecordID = rec.ID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = rec.CreatedAt
	}
	return &r, nil
}

// DecodeAnswers returns the stored answers.
func (rec *AssessmentRecord) DecodeAnswers() ([]Answer, error) {
	var answers []Answer
	if len(rec.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(rec.Answers, &answers); err != nil {
		return nil, fmt.Errorf("decode answers of record %d: %w", rec.ID, err)
	}
	return answers, nil
}
