package notifications

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
)

func marshal(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestBuildNoticesOrderCreated(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	notices, err := buildNotices(enums.EventOrderCreated, marshal(t, payloads.OrderCreatedEvent{
		OrderID:  uuid.New(),
		ShopID:   shopID,
		Total:    decimal.NewFromInt(125),
		Currency: enums.CurrencyQAR,
	}))
	if err != nil {
		t.Fatalf("build notices: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(notices))
	}
	if notices[0].userID != shopID {
		t.Fatal("new order must notify the shop")
	}
	if notices[0].kind != enums.NotificationTypeNewOrder {
		t.Fatalf("unexpected kind %s", notices[0].kind)
	}
}

func TestBuildNoticesPayoutWithDriver(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	driverID := uuid.New()
	driverUserID := uuid.New()
	notices, err := buildNotices(enums.EventPayoutReleased, marshal(t, payloads.PayoutReleasedEvent{
		OrderID:      uuid.New(),
		ShopID:       shopID,
		DriverID:     &driverID,
		DriverUserID: &driverUserID,
		ShopAmount:   decimal.NewFromInt(85),
		DriverAmount: decimal.NewFromInt(25),
		Currency:     enums.CurrencyQAR,
	}))
	if err != nil {
		t.Fatalf("build notices: %v", err)
	}
	if len(notices) != 2 {
		t.Fatalf("expected shop and driver notices, got %d", len(notices))
	}
	if notices[0].userID != shopID {
		t.Fatal("payout notices must target the shop first")
	}
	// The notice goes to the driver's login, not the drivers row.
	if notices[1].userID != driverUserID {
		t.Fatalf("driver notice targets %s, want user %s", notices[1].userID, driverUserID)
	}
}

func TestBuildNoticesPayoutWithoutDriver(t *testing.T) {
	t.Parallel()

	notices, err := buildNotices(enums.EventPayoutReleased, marshal(t, payloads.PayoutReleasedEvent{
		OrderID:    uuid.New(),
		ShopID:     uuid.New(),
		ShopAmount: decimal.NewFromInt(100),
		Currency:   enums.CurrencyQAR,
	}))
	if err != nil {
		t.Fatalf("build notices: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("expected only shop notice, got %d", len(notices))
	}
}

func TestBuildNoticesStatusChangeTargetsConsumer(t *testing.T) {
	t.Parallel()

	consumerID := uuid.New()
	notices, err := buildNotices(enums.EventOrderStatusChanged, marshal(t, payloads.OrderStatusChangedEvent{
		OrderID:    uuid.New(),
		ConsumerID: consumerID,
		FromStatus: enums.OrderStatusReady,
		ToStatus:   enums.OrderStatusPickedUp,
	}))
	if err != nil {
		t.Fatalf("build notices: %v", err)
	}
	if len(notices) != 1 || notices[0].userID != consumerID {
		t.Fatal("status change must notify the consumer")
	}
	if notices[0].kind != enums.NotificationTypeOrderUpdate {
		t.Fatalf("unexpected kind %s", notices[0].kind)
	}
}

func TestBuildNoticesDeliveryAssignedTargetsDriver(t *testing.T) {
	t.Parallel()

	driverUserID := uuid.New()
	notices, err := buildNotices(enums.EventDeliveryAssigned, marshal(t, payloads.DeliveryAssignedEvent{
		OrderID:      uuid.New(),
		DeliveryID:   uuid.New(),
		DriverID:     uuid.New(),
		DriverUserID: driverUserID,
	}))
	if err != nil {
		t.Fatalf("build notices: %v", err)
	}
	if len(notices) != 1 || notices[0].userID != driverUserID {
		t.Fatal("delivery assignment must notify the driver's user account")
	}
}

func TestBuildNoticesMalformedPayload(t *testing.T) {
	t.Parallel()

	if _, err := buildNotices(enums.EventOrderCreated, json.RawMessage(`{"order_id": 42}`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
