package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a parts seller. Lat/Lng anchor dispatch distance checks.
type Shop struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Phone     *string   `gorm:"column:phone;type:text"`
	Lat       float64   `gorm:"column:lat;not null;default:0"`
	Lng       float64   `gorm:"column:lng;not null;default:0"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
