package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/internal/inventory"
	"github.com/onlycars/onlycars-backend/pkg/config"
	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
	"github.com/onlycars/onlycars-backend/pkg/pagination"
)

// Service drives the order lifecycle: creation with stock reservation,
// guarded status transitions, and read paths.
type Service interface {
	Place(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForConsumer(ctx context.Context, consumerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockKeeper interface {
	inventory.Reserver
	inventory.Restocker
}

// Money holds the marketplace money knobs parsed once at startup.
type Money struct {
	CommissionRate decimal.Decimal
	DeliveryFee    decimal.Decimal
	Currency       enums.Currency
}

// MoneyFromConfig parses the string-typed money configuration.
func MoneyFromConfig(cfg config.OrdersConfig) (Money, error) {
	rate, err := decimal.NewFromString(cfg.CommissionRate)
	if err != nil {
		return Money{}, fmt.Errorf("parse commission rate: %w", err)
	}
	fee, err := decimal.NewFromString(cfg.DeliveryFee)
	if err != nil {
		return Money{}, fmt.Errorf("parse delivery fee: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Money{}, fmt.Errorf("commission rate %s out of range", rate)
	}
	if fee.IsNegative() {
		return Money{}, fmt.Errorf("delivery fee %s is negative", fee)
	}
	return Money{
		CommissionRate: rate,
		DeliveryFee:    fee,
		Currency:       enums.Currency(cfg.Currency),
	}, nil
}

type service struct {
	repo   Repository
	tx     txRunner
	stock  stockKeeper
	events outboxEmitter
	money  Money
	logg   *logger.Logger
}

// NewService wires the order service.
func NewService(repo Repository, tx txRunner, stock stockKeeper, events outboxEmitter, money Money, logg *logger.Logger) Service {
	return &service{
		repo:   repo,
		tx:     tx,
		stock:  stock,
		events: events,
		money:  money,
		logg:   logg,
	}
}

func (s *service) Place(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceInput(input); err != nil {
		return nil, err
	}

	partIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		partIDs = append(partIDs, item.PartID)
	}
	parts, err := s.repo.FindParts(ctx, partIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parts")
	}
	partsByID := make(map[uuid.UUID]models.Part, len(parts))
	for _, part := range parts {
		partsByID[part.ID] = part
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	lines := make([]inventory.Line, 0, len(input.Items))
	for _, item := range input.Items {
		part, ok := partsByID[item.PartID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %s not found", item.PartID))
		}
		if part.ShopID != input.ShopID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("part %s does not belong to shop %s", part.ID, input.ShopID))
		}
		if !part.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("part %s is not available", part.ID))
		}
		lineTotal := part.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			PartID:    part.ID,
			PartName:  part.Name,
			Quantity:  item.Quantity,
			UnitPrice: part.Price,
			LineTotal: lineTotal,
		})
		lines = append(lines, inventory.Line{PartID: part.ID, Qty: item.Quantity})
	}

	paymentStatus := enums.OrderPaymentStatusPending
	if input.PaymentMethod == enums.PaymentMethodSadad {
		paymentStatus = enums.OrderPaymentStatusProcessing
	}

	platformFee := subtotal.Mul(s.money.CommissionRate).Round(2)

	order := &models.Order{
		ID:              uuid.New(),
		ConsumerID:      input.ConsumerID,
		ShopID:          input.ShopID,
		WorkshopID:      input.WorkshopID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   input.PaymentMethod,
		Currency:        s.money.Currency,
		Subtotal:        subtotal,
		PlatformFee:     platformFee,
		DeliveryFee:     s.money.DeliveryFee,
		Total:           subtotal.Add(s.money.DeliveryFee),
		DeliveryAddress: input.DeliveryAddress,
		Notes:           input.Notes,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.stock.Reserve(ctx, tx, lines); err != nil {
			return err
		}
		if _, err := txRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := txRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ConsumerID, Role: string(enums.RoleConsumer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				ConsumerID:    order.ConsumerID,
				ShopID:        order.ShopID,
				PaymentMethod: order.PaymentMethod,
				Total:         order.Total,
				Currency:      order.Currency,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "order placed")
	return order, nil
}

func validatePlaceInput(input PlaceOrderInput) error {
	if input.ConsumerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "consumer id is required")
	}
	if input.ShopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	for _, item := range input.Items {
		if item.PartID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item part id is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", input.PaymentMethod))
	}
	if input.DeliveryAddress != nil {
		if err := input.DeliveryAddress.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery address")
		}
	}
	return nil
}

// Transition moves an order to the target status. Re-requesting the current
// status is a no-op success so at-least-once callers can retry safely. An
// illegal target is rejected without touching the row or the history trail.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.Target))
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == input.Target {
			result = order
			return nil
		}
		if !order.Status.CanTransitionTo(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.Target))
		}

		now := time.Now()
		updates, err := s.applySideEffects(ctx, tx, txRepo, order, input.Target, now)
		if err != nil {
			return err
		}

		moved, err := txRepo.UpdateOrderStatusIf(ctx, order.ID, order.Status, input.Target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		history := &models.OrderStatusHistory{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   input.Target,
			ActorRole:  string(input.ActorRole),
			Note:       input.Note,
		}
		if input.ActorID != uuid.Nil {
			actorID := input.ActorID
			history.ActorID = &actorID
		}
		if err := txRepo.InsertStatusHistory(ctx, history); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		actor := &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				ConsumerID: order.ConsumerID,
				ShopID:     order.ShopID,
				FromStatus: order.Status,
				ToStatus:   input.Target,
				ActorRole:  string(input.ActorRole),
				ChangedAt:  now,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		if input.Target == enums.OrderStatusConfirmed {
			// The webhook cascade emits the same event; dedupe on the
			// (event_type, aggregate) pair instead of double-announcing.
			if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderConfirmed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data: payloads.OrderConfirmedEvent{
					OrderID:    order.ID,
					ConsumerID: order.ConsumerID,
					ShopID:     order.ShopID,
				},
				Version: 1,
			}); err != nil {
				return err
			}
		}

		fromStatus := order.Status
		order.Status = input.Target
		applyOrderUpdates(order, updates, now)
		result = order

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"from":     fromStatus,
			"to":       input.Target,
		})
		s.logg.Info(logCtx, "order transitioned")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applySideEffects builds the extra column updates for the target status and
// performs the related delivery/payment/stock writes inside the transaction.
func (s *service) applySideEffects(ctx context.Context, tx *gorm.DB, txRepo Repository, order *models.Order, target enums.OrderStatus, now time.Time) (map[string]any, error) {
	updates := map[string]any{}
	switch target {
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		if err := s.restockOrder(ctx, tx, txRepo, order.ID); err != nil {
			return nil, err
		}
		if err := s.voidPendingPayment(ctx, txRepo, order, updates); err != nil {
			return nil, err
		}
	case enums.OrderStatusPickedUp:
		if err := s.touchDelivery(ctx, txRepo, order.ID, map[string]any{
			"status":       enums.DeliveryStatusPickedUp,
			"picked_up_at": now,
		}); err != nil {
			return nil, err
		}
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
		if err := s.touchDelivery(ctx, txRepo, order.ID, map[string]any{
			"status":       enums.DeliveryStatusDelivered,
			"delivered_at": now,
		}); err != nil {
			return nil, err
		}
		if order.PaymentMethod == enums.PaymentMethodCash {
			if err := s.settleCashPayment(ctx, txRepo, order, updates); err != nil {
				return nil, err
			}
		}
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
	}
	return updates, nil
}

func (s *service) restockOrder(ctx context.Context, tx *gorm.DB, txRepo Repository, orderID uuid.UUID) error {
	detail, err := txRepo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items for restock")
	}
	lines := make([]inventory.Line, 0, len(detail.Items))
	for _, item := range detail.Items {
		lines = append(lines, inventory.Line{PartID: item.PartID, Qty: item.Quantity})
	}
	return s.stock.Restock(ctx, tx, lines)
}

func (s *service) voidPendingPayment(ctx context.Context, txRepo Repository, order *models.Order, updates map[string]any) error {
	payment, err := txRepo.FindPaymentByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPending && payment.Status != enums.PaymentStatusProcessing {
		return nil
	}
	reason := "order cancelled"
	if err := txRepo.UpdatePayment(ctx, payment.ID, map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void payment")
	}
	updates["payment_status"] = enums.OrderPaymentStatusCancelled
	return nil
}

func (s *service) settleCashPayment(ctx context.Context, txRepo Repository, order *models.Order, updates map[string]any) error {
	updates["payment_status"] = enums.OrderPaymentStatusCompleted
	payment, err := txRepo.FindPaymentByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status == enums.PaymentStatusCompleted {
		return nil
	}
	if err := txRepo.UpdatePayment(ctx, payment.ID, map[string]any{
		"status": enums.PaymentStatusCompleted,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle cash payment")
	}
	return nil
}

func (s *service) touchDelivery(ctx context.Context, txRepo Repository, orderID uuid.UUID, updates map[string]any) error {
	delivery, err := txRepo.FindDeliveryByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	if err := txRepo.UpdateDelivery(ctx, delivery.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery")
	}
	return nil
}

// applyOrderUpdates mirrors the column updates onto the in-memory order so
// callers get the post-transition view without a re-read.
func applyOrderUpdates(order *models.Order, updates map[string]any, now time.Time) {
	for column, value := range updates {
		switch column {
		case "cancelled_at":
			t := now
			order.CancelledAt = &t
		case "delivered_at":
			t := now
			order.DeliveredAt = &t
		case "completed_at":
			t := now
			order.CompletedAt = &t
		case "payment_status":
			if status, ok := value.(enums.OrderPaymentStatus); ok {
				order.PaymentStatus = status
			}
		}
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForConsumer(ctx context.Context, consumerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if consumerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consumer id is required")
	}
	list, err := s.repo.ListConsumerOrders(ctx, consumerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}
