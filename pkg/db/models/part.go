package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Part is a catalog item sold by a shop.
type Part struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID      uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Name        string          `gorm:"column:name;type:text;not null"`
	Description *string         `gorm:"column:description;type:text"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQty    int             `gorm:"column:stock_qty;not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
