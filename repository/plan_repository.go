package repository

import (
	"errors"
	"fmt"

	"healthscreen/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlanRepository defines the interface for interacting with plan and plan task data.
type PlanRepository interface {
	CreatePlan(plan *models.Plan) error
	GetPlanByID(planID uint) (*models.Plan, error)
	GetPlanByRecordID(recordID uint) (*models.Plan, error)
	GetPlansByUserID(userID string) ([]*models.Plan, error)
	UpdatePlan(plan *models.Plan) error
	GetTaskByID(taskID uint) (*models.PlanTask, error)
	UpdatePlanTask(task *models.PlanTask) error
}

type planRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(db *gorm.DB, log *zap.Logger) PlanRepository {
	return &planRepository{db: db, log: log.Named("PlanRepository")}
}

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order(`"order" asc`).Order("id asc")
}

// CreatePlan creates a plan together with its tasks.
func (r *planRepository) CreatePlan(plan *models.Plan) error {
	if plan == nil {
		return errors.New("plan cannot be nil")
	}
	if err := r.db.Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create plan for userID %s: %w", plan.UserID, err)
	}
	r.log.Info("Created plan",
		zap.Uint("plan_id", plan.ID),
		zap.String("user_id", plan.UserID),
		zap.Uint("record_id", plan.RecordID),
		zap.Int("tasks", len(plan.Tasks)),
	)
	return nil
}

// GetPlanByID retrieves a plan with its tasks. It returns (nil, nil) when not found.
func (r *planRepository) GetPlanByID(planID uint) (*models.Plan, error) {
	plan, err := first[models.Plan](r.db.Preload("Tasks", orderedTasks), planID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve plan ID %d: %w", planID, err)
	}
	return plan, nil
}

// GetPlanByRecordID returns the plan generated from a stored result, or (nil, nil).
func (r *planRepository) GetPlanByRecordID(recordID uint) (*models.Plan, error) {
	plan, err := first[models.Plan](r.db.Preload("Tasks", orderedTasks).Where("record_id = ?", recordID))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve plan for record %d: %w", recordID, err)
	}
	return plan, nil
}

// GetPlansByUserID retrieves all plans of a user, newest first.
func (r *planRepository) GetPlansByUserID(userID string) ([]*models.Plan, error) {
	var plans []*models.Plan
	err := r.db.Preload("Tasks", orderedTasks).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve plans for userID %s: %w", userID, err)
	}
	return plans, nil
}

// UpdatePlan saves the plan row. Tasks are saved separately with UpdatePlanTask.
func (r *planRepository) UpdatePlan(plan *models.Plan) error {
	if plan == nil {
		return errors.New("plan cannot be nil")
	}
	if plan.ID == 0 {
		return errors.New("plan ID must be provided for update")
	}
	if err := r.db.Omit("Tasks").Save(plan).Error; err != nil {
		return fmt.Errorf("failed to update plan ID %d: %w", plan.ID, err)
	}
	r.log.Debug("Updated plan", zap.Uint("plan_id", plan.ID), zap.String("status", string(plan.Status)))
	return nil
}

// GetTaskByID retrieves a single task. It returns (nil, nil) when not found.
func (r *planRepository) GetTaskByID(taskID uint) (*models.PlanTask, error) {
	task, err := first[models.PlanTask](r.db, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task ID %d: %w", taskID, err)
	}
	return task, nil
}

func (r *planRepository) UpdatePlanTask(task *models.PlanTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if task.ID == 0 {
		return errors.New("task ID must be provided for update")
	}
	if err := r.db.Save(task).Error; err != nil {
		return fmt.Errorf("failed to update task ID %d: %w", task.ID, err)
	}
	r.log.Debug("Updated plan task", zap.Uint("task_id", task.ID), zap.String("status", string(task.Status)))
	return nil
}
