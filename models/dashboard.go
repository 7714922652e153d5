package models

import "time"

// DashboardPeriod names the time window of a dashboard.
type DashboardPeriod string

const (
	PeriodLast7Days  DashboardPeriod = "last_7_days"
	PeriodLast30Days DashboardPeriod = "last_30_days"
	PeriodAll        DashboardPeriod = "all"
)

// Trend compares the two most recent totals of one questionnaire. Lower scores are healthier.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// ReportPeriod is the resolved window of a dashboard.
type ReportPeriod struct {
	StartDate  string          `json:"start_date,omitempty"` // YYYY-MM-DD, empty for "all"
	EndDate    string          `json:"end_date"`
	PeriodType DashboardPeriod `json:"period_type"`
}

// QuestionnaireProgress summarises one questionnaire's results inside the period.
type QuestionnaireProgress struct {
	QuestionnaireID string            `json:"questionnaire_id"`
	Title           string            `json:"title"`
	Count           int               `json:"count"`
	Latest          *AssessmentResult `json:"latest"`
	Trend           Trend             `json:"trend"`
}

// PlanSummary counts care plan tasks inside the period.
type PlanSummary struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	SkippedTasks   int     `json:"skipped_tasks"`
	CompletionRate float64 `json:"completion_rate"` // CompletedTasks / (TotalTasks - SkippedTasks)
}

// DashboardResponse is the body of GET /api/dashboard/:userID.
type DashboardResponse struct {
	UserID         string                  `json:"user_id"`
	ReportPeriod   ReportPeriod            `json:"report_period"`
	Questionnaires []QuestionnaireProgress `json:"questionnaires"`
	RiskCounts     map[RiskLevel]int       `json:"risk_counts"`
	Plans          PlanSummary             `json:"plans"`
	GeneratedAt    time.Time               `json:"generated_at"`
}
