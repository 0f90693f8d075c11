package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/enums"
)

// Payout is one recipient's share of a released escrow. The unique index on
// (payment_id, recipient_type) makes release idempotent at the database level.
type Payout struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentID     uuid.UUID           `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:uniq_payouts_payment_recipient,priority:1"`
	RecipientType enums.RecipientType `gorm:"column:recipient_type;type:recipient_type;not null;uniqueIndex:uniq_payouts_payment_recipient,priority:2"`
	RecipientID   *uuid.UUID          `gorm:"column:recipient_id;type:uuid"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'QAR'"`
	Status        enums.PayoutStatus  `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	ReleasedAt    *time.Time          `gorm:"column:released_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
