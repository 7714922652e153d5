package repository

import (
	"errors"
	"fmt"

	"healthscreen/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaRepository tracks guest chat usage.
type QuotaRepository interface {
	GetQuota(guestUserID string) (*models.GuestQuota, error)
	IncrementQuota(guestUserID string) (*models.GuestQuota, error)
	ReleaseQuota(guestUserID string) error
	ResetQuota(guestUserID string) error
}

type quotaRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewQuotaRepository creates a new instance of QuotaRepository.
func NewQuotaRepository(db *gorm.DB, log *zap.Logger) QuotaRepository {
	return &quotaRepository{db: db, log: log.Named("QuotaRepository")}
}

// GetQuota returns the guest's usage. An unknown guest has sent 0 messages; that is not an error.
func (r *quotaRepository) GetQuota(guestUserID string) (*models.GuestQuota, error) {
	if guestUserID == "" {
		return nil, errors.New("guest user ID cannot be empty")
	}

	quota, err := first[models.GuestQuota](r.db, "guest_user_id = ?", guestUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quota for guestUserID %s: %w", guestUserID, err)
	}
	if quota == nil {
		return &models.GuestQuota{GuestUserID: guestUserID}, nil
	}
	return quota, nil
}

// IncrementQuota adds one message to the guest's count, creating the row on first use.
func (r *quotaRepository) IncrementQuota(guestUserID string) (*models.GuestQuota, error) {
	if guestUserID == "" {
		return nil, errors.New("guest user ID cannot be empty")
	}

	increment := clause.OnConflict{
		Columns:   []clause.Column{{Name: "guest_user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"messages_sent": gorm.Expr("messages_sent + 1")}),
	}
	if err := r.db.Clauses(increment).Create(&models.GuestQuota{GuestUserID: guestUserID, MessagesSent: 1}).Error; err != nil {
		return nil, fmt.Errorf("failed to increment quota for guestUserID %s: %w", guestUserID, err)
	}

	// The upserted struct is stale on conflict.
	quota, err := first[models.GuestQuota](r.db, "guest_user_id = ?", guestUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quota for guestUserID %s after increment: %w", guestUserID, err)
	}
	if quota == nil {
		return nil, fmt.Errorf("quota row for guestUserID %s missing after increment", guestUserID)
	}
	r.log.Debug("Incremented guest quota", zap.String("guest_id", guestUserID), zap.Int("messages_sent", quota.MessagesSent))
	return quota, nil
}

// ReleaseQuota gives back one message taken by IncrementQuota. The count never drops below 0.
func (r *quotaRepository) ReleaseQuota(guestUserID string) error {
	err := r.db.Model(&models.GuestQuota{}).
		Where("guest_user_id = ? AND messages_sent > 0", guestUserID).
		UpdateColumn("messages_sent", gorm.Expr("messages_sent - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to release quota for guestUserID %s: %w", guestUserID, err)
	}
	return nil
}

// ResetQuota deletes the guest's usage row.
func (r *quotaRepository) ResetQuota(guestUserID string) error {
	if err := r.db.Delete(&models.GuestQuota{}, "guest_user_id = ?", guestUserID).Error; err != nil {
		return fmt.Errorf("failed to reset quota for guestUserID %s: %w", guestUserID, err)
	}
	return nil
}
