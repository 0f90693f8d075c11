package models

import (
	"time"

	"github.com/google/uuid"
)

// UserDevice is a registered push token for a user's device.
type UserDevice struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Token      string    `gorm:"column:token;type:text;not null;uniqueIndex:uniq_user_devices_token"`
	Platform   string    `gorm:"column:platform;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;autoUpdateTime"`
}
