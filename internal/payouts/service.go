package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
)

// Service releases escrowed payments: it computes the shop/driver/platform
// split for a completed order and commits the payout rows exactly once.
type Service interface {
	Release(ctx context.Context, orderID uuid.UUID) (*Breakdown, error)
}

// Breakdown is the caller-facing result of a release.
type Breakdown struct {
	OrderID      uuid.UUID       `json:"order_id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	ShopAmount   decimal.Decimal `json:"shop_amount"`
	DriverAmount decimal.Decimal `json:"driver_amount"`
	Currency     enums.Currency  `json:"currency"`
	ReleasedAt   time.Time       `json:"released_at"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo           Repository
	tx             txRunner
	events         outboxEmitter
	commissionRate decimal.Decimal
	logg           *logger.Logger
}

// NewService wires the payout calculator.
func NewService(repo Repository, tx txRunner, events outboxEmitter, commissionRate decimal.Decimal, logg *logger.Logger) Service {
	return &service{
		repo:           repo,
		tx:             tx,
		events:         events,
		commissionRate: commissionRate,
		logg:           logg,
	}
}

// Release commits the escrow split. Preconditions: the order is completed and
// the payment is held_in_escrow. A second release finds the payment already
// released and fails the precondition check, so payouts are exactly-once; the
// unique index on (payment_id, recipient_type) backstops any race the
// compare-and-set on the payment status does not catch.
func (s *service) Release(ctx context.Context, orderID uuid.UUID) (*Breakdown, error) {
	var breakdown *Breakdown
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeConflict, "nothing to release: order is not completed")
		}

		payment, err := txRepo.FindPaymentByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "nothing to release: order has no payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusHeldInEscrow {
			return pkgerrors.New(pkgerrors.CodeConflict, "nothing to release: payment is not held in escrow")
		}

		hasDriver := order.DriverID != nil
		var driverUserID *uuid.UUID
		if hasDriver {
			driver, err := txRepo.FindDriver(ctx, *order.DriverID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
			}
			driverUserID = &driver.UserID
		}
		// The fee was frozen on the order at placement; recompute only for
		// orders that predate that column.
		fee := order.PlatformFee
		if fee.IsZero() {
			fee = order.Subtotal.Mul(s.commissionRate).Round(2)
		}
		split := SplitWithFee(order.Subtotal, order.DeliveryFee, fee, hasDriver)
		if hasDriver {
			if err := split.Verify(payment.Amount); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payout invariant violated")
			}
		}

		now := time.Now()
		shopID := order.ShopID
		rows := []models.Payout{
			{
				ID:            uuid.New(),
				OrderID:       order.ID,
				PaymentID:     payment.ID,
				RecipientType: enums.RecipientTypeShop,
				RecipientID:   &shopID,
				Amount:        split.ShopAmount,
				Currency:      payment.Currency,
				Status:        enums.PayoutStatusPending,
				ReleasedAt:    &now,
			},
		}
		if order.WorkshopID != nil {
			// Workshop labor is billed outside escrow; the row records that
			// the attached workshop was considered and gets nothing here.
			rows = append(rows, models.Payout{
				ID:            uuid.New(),
				OrderID:       order.ID,
				PaymentID:     payment.ID,
				RecipientType: enums.RecipientTypeWorkshop,
				RecipientID:   order.WorkshopID,
				Amount:        decimal.Zero,
				Currency:      payment.Currency,
				Status:        enums.PayoutStatusNotApplicable,
			})
		}
		if hasDriver {
			rows = append(rows, models.Payout{
				ID:            uuid.New(),
				OrderID:       order.ID,
				PaymentID:     payment.ID,
				RecipientType: enums.RecipientTypeDriver,
				RecipientID:   order.DriverID,
				Amount:        split.DriverAmount,
				Currency:      payment.Currency,
				Status:        enums.PayoutStatusPending,
				ReleasedAt:    &now,
			})
		}
		if err := txRepo.CreatePayouts(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payouts")
		}

		moved, err := txRepo.UpdatePaymentStatusIf(ctx, payment.ID,
			enums.PaymentStatusHeldInEscrow, enums.PaymentStatusReleased,
			map[string]any{"released_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release payment")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment already released")
		}

		if err := txRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.OrderPaymentStatusReleased,
			"platform_fee":   split.PlatformFee,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutReleased,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.RoleSystem)},
			Data: payloads.PayoutReleasedEvent{
				OrderID:      order.ID,
				PaymentID:    payment.ID,
				ShopID:       order.ShopID,
				DriverID:     order.DriverID,
				DriverUserID: driverUserID,
				PlatformFee:  split.PlatformFee,
				ShopAmount:   split.ShopAmount,
				DriverAmount: split.DriverAmount,
				Currency:     payment.Currency,
				ReleasedAt:   now,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		breakdown = &Breakdown{
			OrderID:      order.ID,
			PaymentID:    payment.ID,
			PlatformFee:  split.PlatformFee,
			ShopAmount:   split.ShopAmount,
			DriverAmount: split.DriverAmount,
			Currency:     payment.Currency,
			ReleasedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     breakdown.OrderID.String(),
		"payment_id":   breakdown.PaymentID.String(),
		"platform_fee": breakdown.PlatformFee,
	})
	s.logg.Info(logCtx, "escrow released")
	return breakdown, nil
}
