package sadad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/internal/orders"
	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

// Service ingests Sadad payment callbacks. Delivery is at-least-once and
// unordered, so every write in here is conditional: redelivering the same
// payload must not produce duplicate escrow holds, history rows, or events.
type Service interface {
	Ingest(ctx context.Context, payload types.JSONMap) (*Result, error)
}

// Result reports what the callback resolved to.
type Result struct {
	OrderID            uuid.UUID                `json:"order_id"`
	PaymentStatus      enums.PaymentStatus      `json:"payment_status"`
	OrderPaymentStatus enums.OrderPaymentStatus `json:"order_payment_status"`
	Applied            bool                     `json:"applied"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   orders.Repository
	tx     txRunner
	events outboxEmitter
	logg   *logger.Logger
}

// NewService wires the webhook ingestor.
func NewService(repo orders.Repository, tx txRunner, events outboxEmitter, logg *logger.Logger) Service {
	return &service{repo: repo, tx: tx, events: events, logg: logg}
}

func (s *service) Ingest(ctx context.Context, payload types.JSONMap) (*Result, error) {
	callback, err := ParseCallback(payload)
	if err != nil {
		return nil, err
	}
	mapping := MapProviderStatus(callback.ProviderStatus)

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindOrder(ctx, callback.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for webhook reference")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		payment, err := txRepo.FindPaymentByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no payment to reconcile")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		// Idempotence: already at the computed target, or past the point
		// where a provider callback may still speak for this payment.
		if payment.Status == mapping.Payment || isSettled(payment.Status) {
			result = &Result{
				OrderID:            order.ID,
				PaymentStatus:      payment.Status,
				OrderPaymentStatus: order.PaymentStatus,
				Applied:            false,
			}
			return nil
		}

		now := time.Now()
		updates := map[string]any{
			"provider_status":   callback.ProviderStatus,
			"provider_response": callback.Raw,
		}
		if callback.InvoiceID != "" && payment.InvoiceID == nil {
			updates["invoice_id"] = callback.InvoiceID
		}
		switch mapping.Payment {
		case enums.PaymentStatusHeldInEscrow:
			updates["escrowed_at"] = now
		case enums.PaymentStatusFailed:
			updates["failure_reason"] = fmt.Sprintf("provider reported %s", callback.ProviderStatus)
		}

		moved, err := txRepo.UpdatePaymentStatusIf(ctx, payment.ID, payment.Status, mapping.Payment, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if !moved {
			// Another delivery of this callback won the race.
			result = &Result{
				OrderID:            order.ID,
				PaymentStatus:      payment.Status,
				OrderPaymentStatus: order.PaymentStatus,
				Applied:            false,
			}
			return nil
		}

		if err := txRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": mapping.Order,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}

		switch mapping.Payment {
		case enums.PaymentStatusHeldInEscrow:
			if err := s.cascadeConfirm(ctx, tx, txRepo, order); err != nil {
				return err
			}
			if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentSucceeded,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Actor:         systemActor(),
				Data: payloads.PaymentSucceededEvent{
					OrderID:        order.ID,
					PaymentID:      payment.ID,
					ConsumerID:     order.ConsumerID,
					Method:         payment.Method,
					Amount:         payment.Amount,
					Currency:       payment.Currency,
					TransactionRef: payment.TransactionRef,
				},
				Version: 1,
			}); err != nil {
				return err
			}
		case enums.PaymentStatusFailed:
			reason := fmt.Sprintf("provider reported %s", callback.ProviderStatus)
			if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Actor:         systemActor(),
				Data: payloads.PaymentFailedEvent{
					OrderID:        order.ID,
					PaymentID:      payment.ID,
					ConsumerID:     order.ConsumerID,
					ProviderStatus: callback.ProviderStatus,
					Reason:         reason,
				},
				Version: 1,
			}); err != nil {
				return err
			}
		}

		result = &Result{
			OrderID:            order.ID,
			PaymentStatus:      mapping.Payment,
			OrderPaymentStatus: mapping.Order,
			Applied:            true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":        result.OrderID.String(),
		"provider_status": callback.ProviderStatus,
		"payment_status":  result.PaymentStatus,
		"applied":         result.Applied,
	})
	s.logg.Info(logCtx, "webhook ingested")
	return result, nil
}

// cascadeConfirm moves a still-pending order to confirmed. The compare-and-set
// keeps a late callback from clobbering an order that already advanced through
// manual status updates.
func (s *service) cascadeConfirm(ctx context.Context, tx *gorm.DB, txRepo orders.Repository, order *models.Order) error {
	moved, err := txRepo.UpdateOrderStatusIf(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
	}
	if !moved {
		return nil
	}

	note := "payment confirmed via gateway callback"
	if err := txRepo.InsertStatusHistory(ctx, &models.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    order.ID,
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusConfirmed,
		ActorRole:  string(enums.RoleSystem),
		Note:       &note,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
	}

	return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         systemActor(),
		Data: payloads.OrderConfirmedEvent{
			OrderID:    order.ID,
			ConsumerID: order.ConsumerID,
			ShopID:     order.ShopID,
		},
		Version: 1,
	})
}

// isSettled reports whether the payment has passed the point where provider
// callbacks may still change it.
func isSettled(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusCompleted ||
		status == enums.PaymentStatusReleased ||
		status == enums.PaymentStatusHeldInEscrow
}

func systemActor() *outbox.ActorRef {
	return &outbox.ActorRef{Role: string(enums.RoleSystem)}
}
