package models

import "time"

// AssessmentResult is the outcome of scoring a completed session. It is read-only once created.
type AssessmentResult struct {
	QuestionnaireID  string          `json:"questionnaire_id"`
	TotalScore       float64         `json:"total_score"`
	MaxScore         float64         `json:"max_score"`
	Percentage       int             `json:"percentage"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	RiskFactors      []string        `json:"risk_factors"`
	Interpretation   LocalizedText   `json:"interpretation,omitempty"`
	Tally            map[string]int  `json:"tally,omitempty"`
	DominantCategory string          `json:"dominant_category,omitempty"`
	Recommendations  []string        `json:"recommendations"`
	Summary          string          `json:"summary"`
	Analysis         *AnalysisResult `json:"analysis,omitempty"`
	RecordID         uint            `json:"record_id"` // 0 for guests
	CreatedAt        time.Time       `json:"created_at"`
}

// HasRiskFactor reports whether tag was triggered.
func (r *AssessmentResult) HasRiskFactor(tag string) bool {
	for _, f := range r.RiskFactors {
		if f == tag {
			return true
		}
	}
	return false
}

// AnalysisResult is the bilingual analysis returned by the analysis collaborator.
type AnalysisResult struct {
	Summary         LocalizedText   `json:"summary"`
	Recommendations []LocalizedText `json:"recommendations"`
	RiskLevel       RiskLevel       `json:"risk_level,omitempty"` // Level the analyst suggests; informational
	Provider        string          `json:"provider"`             // "openai" or "local"
}

// AnsweredItem is one (question, answer) pair in readable form.
type AnsweredItem struct {
	QuestionID string  `json:"question_id"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"score"`
}

// AnalysisRequest is what the analysis collaborator receives.
type AnalysisRequest struct {
	QuestionnaireID string         `json:"questionnaire_id"`
	Title           string         `json:"title"`
	Language        Language       `json:"language"`
	Items           []AnsweredItem `json:"items"`
	TotalScore      float64        `json:"total_score"`
	MaxScore        float64        `json:"max_score"`
	Percentage      int            `json:"percentage"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	RiskFactors     []string       `json:"risk_factors"`
}
