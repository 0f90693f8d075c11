package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/onlycars/onlycars-backend/pkg/config"
	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
)

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{TopicID: "domain-events"})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func encodeEnvelope(t *testing.T, data any) json.RawMessage {
	t.Helper()
	inner, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       inner,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newRegistry(t)
	orderID := uuid.New()
	driverID := uuid.New()

	row := models.OutboxEvent{
		EventType:     enums.EventDeliveryAssigned,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   uuid.New(),
		Payload: encodeEnvelope(t, payloads.DeliveryAssignedEvent{
			OrderID:  orderID,
			DriverID: driverID,
		}),
	}

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "domain-events" {
		t.Fatalf("topic = %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.DeliveryAssignedEvent)
	if !ok {
		t.Fatalf("payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.DriverID != driverID {
		t.Fatal("payload fields not preserved")
	}
}

func TestResolveRejectsUnknownEventType(t *testing.T) {
	reg := newRegistry(t)
	row := models.OutboxEvent{
		EventType:     enums.OutboxEventType("bogus"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       encodeEnvelope(t, map[string]any{}),
	}
	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg := newRegistry(t)
	row := models.OutboxEvent{
		EventType:     enums.EventPaymentSucceeded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       encodeEnvelope(t, payloads.PaymentSucceededEvent{}),
	}
	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	reg := newRegistry(t)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), OccurredAt: time.Now(), Data: json.RawMessage("null")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	row := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}
	if _, err := reg.Resolve(row); err == nil {
		t.Fatal("expected error for null payload")
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected error for missing topic")
	}
}
