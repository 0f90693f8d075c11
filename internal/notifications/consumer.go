package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/idempotency"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
	"github.com/onlycars/onlycars-backend/pkg/push"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

const orderNotificationConsumer = "order-notifications"

// Consumer watches domain events and fans them out as in-app notifications
// plus best-effort push delivery. Event processing is guarded by a Redis
// idempotency mark so pub/sub redelivery cannot double-notify.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	push         push.Sender
	logg         *logger.Logger
}

// NewConsumer builds the order notification consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, sender push.Sender, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		push:         sender,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

// notice is one in-app notification plus its push rendering.
type notice struct {
	userID  uuid.UUID
	kind    enums.NotificationType
	title   string
	message string
	data    types.JSONMap
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	notices, err := buildNotices(eventType, data)
	if err != nil {
		return err
	}
	if len(notices) == 0 {
		c.logg.Info(logCtx, "event carries no notifications")
		return nil
	}
	for _, n := range notices {
		if err := c.deliver(ctx, n, logCtx); err != nil {
			return err
		}
	}
	return nil
}

func buildNotices(eventType enums.OutboxEventType, data json.RawMessage) ([]notice, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []notice{{
			userID:  payload.ShopID,
			kind:    enums.NotificationTypeNewOrder,
			title:   "New order received",
			message: fmt.Sprintf("Order %s for %s %s is waiting for confirmation.", shortID(payload.OrderID), payload.Total, payload.Currency),
			data:    types.JSONMap{"order_id": payload.OrderID.String()},
		}}, nil

	case enums.EventOrderConfirmed:
		var payload payloads.OrderConfirmedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []notice{{
			userID:  payload.ShopID,
			kind:    enums.NotificationTypeNewOrder,
			title:   "Order confirmed",
			message: fmt.Sprintf("Order %s is paid and ready to prepare.", shortID(payload.OrderID)),
			data:    types.JSONMap{"order_id": payload.OrderID.String()},
		}}, nil

	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []notice{{
			userID:  payload.ConsumerID,
			kind:    enums.NotificationTypeOrderUpdate,
			title:   "Order update",
			message: fmt.Sprintf("Your order %s is now %s.", shortID(payload.OrderID), statusLabel(payload.ToStatus)),
			data: types.JSONMap{
				"order_id": payload.OrderID.String(),
				"status":   string(payload.ToStatus),
			},
		}}, nil

	case enums.EventPaymentSucceeded:
		var payload payloads.PaymentSucceededEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []notice{{
			userID:  payload.ConsumerID,
			kind:    enums.NotificationTypePaymentSuccess,
			title:   "Payment received",
			message: fmt.Sprintf("Your payment of %s %s for order %s is held safely until delivery.", payload.Amount, payload.Currency, shortID(payload.OrderID)),
			data:    types.JSONMap{"order_id": payload.OrderID.String()},
		}}, nil

	case enums.EventPaymentFailed:
		var payload payloads.PaymentFailedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []notice{{
			userID:  payload.ConsumerID,
			kind:    enums.NotificationTypePaymentFailed,
			title:   "Payment failed",
			message: fmt.Sprintf("Payment for order %s did not go through. Please try again.", shortID(payload.OrderID)),
			data:    types.JSONMap{"order_id": payload.OrderID.String()},
		}}, nil

	case enums.EventPayoutReleased:
		var payload payloads.PayoutReleasedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		notices := []notice{{
			userID:  payload.ShopID,
			kind:    enums.NotificationTypePayout,
			title:   "Payout released",
			message: fmt.Sprintf("%s %s from order %s is on its way to you.", payload.ShopAmount, payload.Currency, shortID(payload.OrderID)),
			data:    types.JSONMap{"order_id": payload.OrderID.String()},
		}}
		if payload.DriverUserID != nil && payload.DriverAmount.IsPositive() {
			notices = append(notices, notice{
				userID:  *payload.DriverUserID,
				kind:    enums.NotificationTypePayout,
				title:   "Payout released",
				message: fmt.Sprintf("Delivery fee %s %s from order %s is on its way to you.", payload.DriverAmount, payload.Currency, shortID(payload.OrderID)),
				data:    types.JSONMap{"order_id": payload.OrderID.String()},
			})
		}
		return notices, nil

	case enums.EventDeliveryAssigned:
		var payload payloads.DeliveryAssignedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []notice{{
			userID:  payload.DriverUserID,
			kind:    enums.NotificationTypeDeliveryAssigned,
			title:   "New delivery",
			message: fmt.Sprintf("You have been assigned order %s. Head to the shop for pickup.", shortID(payload.OrderID)),
			data: types.JSONMap{
				"order_id":    payload.OrderID.String(),
				"delivery_id": payload.DeliveryID.String(),
			},
		}}, nil
	}
	return nil, nil
}

// deliver persists the in-app row and then attempts push. Push failure is
// logged but never fails the event: the in-app notification is the source of
// truth and FCM hiccups should not trigger redelivery storms.
func (c *Consumer) deliver(ctx context.Context, n notice, logCtx context.Context) error {
	row := &models.Notification{
		ID:      uuid.New(),
		UserID:  n.userID,
		Type:    n.kind,
		Title:   n.title,
		Message: n.message,
		Data:    n.data,
	}
	if err := c.repo.Create(ctx, row); err != nil {
		return err
	}

	if c.push == nil {
		return nil
	}
	tokens, err := c.repo.ListDeviceTokens(ctx, n.userID)
	if err != nil {
		c.logg.Error(logCtx, "failed to load device tokens", err)
		return nil
	}
	if len(tokens) == 0 {
		return nil
	}
	pushData := map[string]string{"type": string(n.kind)}
	for key, value := range n.data {
		if text, ok := value.(string); ok {
			pushData[key] = text
		}
	}
	if err := c.push.Send(ctx, push.Message{
		Tokens: tokens,
		Title:  n.title,
		Body:   n.message,
		Data:   pushData,
	}); err != nil {
		c.logg.Error(logCtx, "push delivery failed", err)
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return "#" + id.String()[:8]
}

func statusLabel(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPickedUp:
		return "picked up"
	case enums.OrderStatusCancelled:
		return "cancelled"
	default:
		return string(status)
	}
}
