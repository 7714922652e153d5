package models

// InitResponse defines the structure for the /api/init endpoint response.
type InitResponse struct {
	UserType        string              `json:"user_type"` // "guest" or "registered"
	UserID          string              `json:"user_id"`
	Language        Language            `json:"language"`
	Languages       []Language          `json:"languages"`
	GuestChatQuota  int                 `json:"guest_chat_quota"`
	MessagesSent    int                 `json:"messages_sent"`
	RemainingQuota  int                 `json:"remaining_quota"`
	Questionnaires  []QuestionnaireInfo `json:"questionnaires"`
	RiskLevels      []RiskPresentation  `json:"risk_levels"`
	AnalysisEnabled bool                `json:"analysis_enabled"` // false when the local fallback is in use
}

// QuestionnaireInfo is the catalog listing entry of one instrument.
type QuestionnaireInfo struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	QuestionCount int           `json:"question_count"`
	Scoring       ScoringMethod `json:"scoring"`
	Branching     bool          `json:"branching"`
}

// Info summarises q in lang.
func (q *Questionnaire) Info(lang Language) QuestionnaireInfo {
	scoring := q.Scoring
	if scoring == "" {
		scoring = ScoringSum
	}
	return QuestionnaireInfo{
		ID:            q.ID,
		Title:         q.Title.In(lang),
		Description:   q.Description.In(lang),
		QuestionCount: len(q.Questions),
		Scoring:       scoring,
		Branching:     q.Branch != nil,
	}
}
