package models

import (
	"time"

	"github.com/google/uuid"
)

// Driver is a delivery driver. Only available and verified drivers are
// considered for dispatch.
type Driver struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Phone       *string   `gorm:"column:phone;type:text"`
	Lat         float64   `gorm:"column:lat;not null;default:0"`
	Lng         float64   `gorm:"column:lng;not null;default:0"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:false"`
	IsVerified  bool      `gorm:"column:is_verified;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
