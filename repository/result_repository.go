package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthscreen/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResultRepository stores submitted assessments of registered users.
type ResultRepository interface {
	CreateAssessmentRecord(ctx context.Context, rec *models.AssessmentRecord) error
	GetAssessmentRecordByID(ctx context.Context, id uint) (*models.AssessmentRecord, error)
	GetAssessmentRecordsByUserID(ctx context.Context, userID string, since *time.Time) ([]*models.AssessmentRecord, error)
}

type resultRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewResultRepository creates a gorm-backed ResultRepository.
func NewResultRepository(db *gorm.DB, log *zap.Logger) ResultRepository {
	return &resultRepository{db: db, log: log.Named("ResultRepository")}
}

func (r *resultRepository) CreateAssessmentRecord(ctx context.Context, rec *models.AssessmentRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	if rec.UserID == "" {
		return errors.New("record user ID cannot be empty")
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create assessment record for userID %s: %w", rec.UserID, err)
	}
	r.log.Info("Created assessment record",
		zap.Uint("record_id", rec.ID),
		zap.String("user_id", rec.UserID),
		zap.String("questionnaire_id", rec.QuestionnaireID),
		zap.String("risk_level", string(rec.RiskLevel)),
	)
	return nil
}

// GetAssessmentRecordByID returns (nil, nil) when the record does not exist.
func (r *resultRepository) GetAssessmentRecordByID(ctx context.Context, id uint) (*models.AssessmentRecord, error) {
	rec, err := first[models.AssessmentRecord](r.db.WithContext(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve assessment record %d: %w", id, err)
	}
	return rec, nil
}

// GetAssessmentRecordsByUserID returns the user's records, newest first. since limits the result
// to records created at or after it.
func (r *resultRepository) GetAssessmentRecordsByUserID(ctx context.Context, userID string, since *time.Time) ([]*models.AssessmentRecord, error) {
	var recs []*models.AssessmentRecord
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	if err := q.Order("created_at desc").Order("id desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve assessment records for userID %s: %w", userID, err)
	}
	return recs, nil
}
