package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/sadad"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

// Service owns the payment-intent side of the ledger: opening a payment
// record for an order, either as a cash promise or a hosted gateway invoice.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

type service struct {
	repo    Repository
	gateway InvoiceGateway
	logg    *logger.Logger
}

// NewService wires the payment ledger.
func NewService(repo Repository, gateway InvoiceGateway, logg *logger.Logger) Service {
	return &service{repo: repo, gateway: gateway, logg: logg}
}

// CreateIntent opens the payment record for an order. The order must not
// already carry a live payment; a previously failed attempt is reopened in
// place since payments are 1:1 with orders. A gateway outage never leaves
// the order without a payment row: a synthetic reference is persisted and
// the webhook or a retry settles the real state later.
func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	existing, err := s.repo.FindPaymentByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if existing != nil && existing.Status != enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order already has a %s payment", existing.Status))
	}

	var intent *Intent
	switch order.PaymentMethod {
	case enums.PaymentMethodCash:
		intent, err = s.cashIntent(ctx, order, existing)
	case enums.PaymentMethodSadad:
		intent, err = s.gatewayIntent(ctx, order, existing, input)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported payment method %q", order.PaymentMethod))
	}
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"payment_id": intent.PaymentID.String(),
		"method":     intent.Method,
		"status":     intent.Status,
	})
	s.logg.Info(logCtx, "payment intent created")
	return intent, nil
}

// cashIntent records a locally-referenced payment that stays pending until
// the driver collects on delivery.
func (s *service) cashIntent(ctx context.Context, order *models.Order, existing *models.Payment) (*Intent, error) {
	ref := "cash_" + order.ID.String()[:8]
	payment, err := s.upsertPayment(ctx, order, existing, map[string]any{
		"status":          enums.PaymentStatusPending,
		"transaction_ref": ref,
	}, func() *models.Payment {
		return &models.Payment{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Method:         enums.PaymentMethodCash,
			Status:         enums.PaymentStatusPending,
			Amount:         order.Total,
			Currency:       order.Currency,
			TransactionRef: ref,
		}
	})
	if err != nil {
		return nil, err
	}
	return intentView(payment, ""), nil
}

// gatewayIntent opens a hosted Sadad invoice. Gateway errors are downgraded
// to a locally persisted record instead of failing the request outright.
func (s *service) gatewayIntent(ctx context.Context, order *models.Order, existing *models.Payment, input CreateIntentInput) (*Intent, error) {
	invoice, gatewayErr := s.gateway.CreateInvoice(ctx, sadad.InvoiceCreateParams{
		OrderRef:      order.ID.String(),
		Amount:        order.Total,
		Currency:      string(order.Currency),
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
	})

	var (
		status      enums.PaymentStatus
		ref         string
		invoiceID   *string
		checkoutURL string
		failure     *string
		response    types.JSONMap
	)
	switch {
	case gatewayErr == nil:
		status = enums.PaymentStatusProcessing
		ref = invoice.ID
		if ref == "" {
			ref = invoice.Number
		}
		id := invoice.ID
		invoiceID = &id
		checkoutURL = invoice.PaymentURL
		response = types.JSONMap{
			"invoice_number": invoice.Number,
			"status":         invoice.Status,
		}
	case isRetryableGatewayError(gatewayErr):
		// Gateway unreachable or erroring on its side. Keep the order
		// payable: record a processing payment under a synthetic ref.
		status = enums.PaymentStatusProcessing
		ref = fmt.Sprintf("sadad_pending_%d", time.Now().Unix())
		reason := gatewayErr.Error()
		failure = &reason
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "gateway unavailable, recorded processing payment")
	default:
		status = enums.PaymentStatusFailed
		ref = fmt.Sprintf("sadad_err_%d", time.Now().Unix())
		reason := gatewayErr.Error()
		failure = &reason
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "gateway rejected invoice, recorded failed payment")
	}

	payment, err := s.upsertPayment(ctx, order, existing, map[string]any{
		"status":          status,
		"transaction_ref": ref,
		"invoice_id":      invoiceID,
		"failure_reason":  failure,
	}, func() *models.Payment {
		return &models.Payment{
			ID:               uuid.New(),
			OrderID:          order.ID,
			Method:           enums.PaymentMethodSadad,
			Status:           status,
			Amount:           order.Total,
			Currency:         order.Currency,
			TransactionRef:   ref,
			InvoiceID:        invoiceID,
			FailureReason:    failure,
			ProviderResponse: response,
		}
	})
	if err != nil {
		return nil, err
	}
	return intentView(payment, checkoutURL), nil
}

// upsertPayment reuses an existing failed row when present, otherwise
// inserts a fresh one. The unique index on order_id enforces 1:1.
func (s *service) upsertPayment(ctx context.Context, order *models.Order, existing *models.Payment, updates map[string]any, build func() *models.Payment) (*models.Payment, error) {
	if existing != nil {
		if err := s.repo.UpdatePayment(ctx, existing.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen payment")
		}
		return s.repo.FindPaymentByOrder(ctx, order.ID)
	}
	payment := build()
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindPaymentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func intentView(payment *models.Payment, checkoutURL string) *Intent {
	return &Intent{
		PaymentID:      payment.ID,
		OrderID:        payment.OrderID,
		Method:         payment.Method,
		Status:         payment.Status,
		TransactionRef: payment.TransactionRef,
		CheckoutURL:    checkoutURL,
	}
}

// isRetryableGatewayError distinguishes "Sadad is down" from "Sadad said no".
func isRetryableGatewayError(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		// Raw transport error from the HTTP client.
		return true
	}
	return typed.Code() == pkgerrors.CodeDependency
}
