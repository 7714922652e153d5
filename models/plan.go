package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// PlanStatus defines the possible statuses for a care plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// Plan is a follow-up care plan generated from one stored assessment result.
type Plan struct {
	ID              uint           `json:"id" gorm:"primarykey"`
	UserID          string         `json:"user_id" gorm:"index;not null"`
	RecordID        uint           `json:"record_id" gorm:"index"`
	QuestionnaireID string         `json:"questionnaire_id" gorm:"type:varchar(64)"`
	RiskLevel       RiskLevel      `json:"risk_level" gorm:"type:varchar(16)"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description" gorm:"type:text"`
	Status          PlanStatus     `json:"status" gorm:"type:varchar(50);default:'active';not null"`
	CompletedAt     sql.NullTime   `json:"completed_at"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
	Tasks           []PlanTask     `json:"tasks" gorm:"foreignKey:PlanID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// TableName specifies the table name for the Plan model.
func (Plan) TableName() string {
	return "plans"
}

// TaskType defines the category of a plan task.
type TaskType string

const (
	TaskTypeRetake         TaskType = "retake" // Repeat the questionnaire
	TaskTypeSelfCare       TaskType = "self_care"
	TaskTypeConsultation   TaskType = "consultation"   // Book a teleconsultation
	TaskTypeHotline        TaskType = "hotline"        // Call the mental health hotline
	TaskTypeRecommendation TaskType = "recommendation" // Taken from the analysis
)

// TaskStatus defines the possible statuses for a plan task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// PlanTask is one follow-up step of a Plan.
type PlanTask struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	PlanID      uint           `json:"plan_id" gorm:"index;not null"`
	Type        TaskType       `json:"type" gorm:"type:varchar(50);not null"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	Urgent      bool           `json:"urgent" gorm:"default:false"`
	DueAt       *time.Time     `json:"due_at,omitempty"`
	Status      TaskStatus     `json:"status" gorm:"type:varchar(50);default:'pending';not null"`
	CompletedAt sql.NullTime   `json:"completed_at"`
	Order       int            `json:"order" gorm:"default:0"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for the PlanTask model.
func (PlanTask) TableName() string {
	return "plan_tasks"
}
