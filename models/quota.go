package models

import "time"

// GuestQuota tracks how many chat messages a guest has sent.
type GuestQuota struct {
	GuestUserID  string `gorm:"primaryKey"`
	MessagesSent int    `gorm:"default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GuestQuota model.
func (GuestQuota) TableName() string {
	return "guest_quotas"
}
