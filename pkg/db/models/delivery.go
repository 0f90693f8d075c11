package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/onlycars/onlycars-backend/pkg/enums"
)

// Delivery tracks the driver leg of an order. One delivery per order.
type Delivery struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uniq_deliveries_order_id"`
	DriverID    uuid.UUID            `gorm:"column:driver_id;type:uuid;not null;index"`
	Status      enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'assigned'"`
	PickupLat   float64              `gorm:"column:pickup_lat;not null;default:0"`
	PickupLng   float64              `gorm:"column:pickup_lng;not null;default:0"`
	AssignedAt  time.Time            `gorm:"column:assigned_at;not null"`
	PickedUpAt  *time.Time           `gorm:"column:picked_up_at"`
	DeliveredAt *time.Time           `gorm:"column:delivered_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
