package payouts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
)

const testSchema = `
CREATE TABLE orders (
	id TEXT PRIMARY KEY,
	consumer_id TEXT NOT NULL,
	shop_id TEXT NOT NULL,
	driver_id TEXT,
	workshop_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	payment_status TEXT NOT NULL DEFAULT 'pending',
	payment_method TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'QAR',
	subtotal NUMERIC NOT NULL DEFAULT 0,
	delivery_fee NUMERIC NOT NULL DEFAULT 0,
	platform_fee NUMERIC NOT NULL DEFAULT 0,
	total NUMERIC NOT NULL DEFAULT 0,
	delivery_address TEXT,
	notes TEXT,
	cancelled_at DATETIME,
	delivered_at DATETIME,
	completed_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE payments (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL UNIQUE,
	method TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	amount NUMERIC NOT NULL,
	currency TEXT NOT NULL DEFAULT 'QAR',
	transaction_ref TEXT NOT NULL,
	invoice_id TEXT,
	provider_status TEXT,
	provider_response TEXT,
	failure_reason TEXT,
	escrowed_at DATETIME,
	released_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE payouts (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	payment_id TEXT NOT NULL,
	recipient_type TEXT NOT NULL,
	recipient_id TEXT,
	amount NUMERIC NOT NULL,
	currency TEXT NOT NULL DEFAULT 'QAR',
	status TEXT NOT NULL DEFAULT 'pending',
	released_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (payment_id, recipient_type)
);
CREATE TABLE drivers (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	phone TEXT,
	lat REAL NOT NULL DEFAULT 0,
	lng REAL NOT NULL DEFAULT 0,
	is_available BOOLEAN NOT NULL DEFAULT 0,
	is_verified BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	published_at DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
);
`

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type testEnv struct {
	db      *gorm.DB
	service Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:payouts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Exec(testSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	svc := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		outbox.NewService(outbox.NewRepository(db), logg),
		decimal.RequireFromString("0.15"),
		logg,
	)
	return &testEnv{db: db, service: svc}
}

func (e *testEnv) seedReleasableOrder(t *testing.T, withDriver bool) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		ConsumerID:    uuid.New(),
		ShopID:        uuid.New(),
		Status:        enums.OrderStatusCompleted,
		PaymentStatus: enums.OrderPaymentStatusHeldInEscrow,
		PaymentMethod: enums.PaymentMethodSadad,
		Currency:      enums.CurrencyQAR,
		Subtotal:      decimal.NewFromInt(100),
		DeliveryFee:   decimal.NewFromInt(25),
		Total:         decimal.NewFromInt(125),
	}
	if withDriver {
		driver := &models.Driver{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Name:        "hamad",
			IsAvailable: false,
			IsVerified:  true,
		}
		if err := e.db.Create(driver).Error; err != nil {
			t.Fatalf("seed driver: %v", err)
		}
		order.DriverID = &driver.ID
	}
	if err := e.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	escrowed := time.Now()
	payment := &models.Payment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Method:         enums.PaymentMethodSadad,
		Status:         enums.PaymentStatusHeldInEscrow,
		Amount:         order.Total,
		Currency:       enums.CurrencyQAR,
		TransactionRef: "INV-" + order.ID.String()[:8],
		EscrowedAt:     &escrowed,
	}
	if err := e.db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return order
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error with code %s, got %v", want, err)
	}
	if typed.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, typed.Code(), err)
	}
}

func TestReleaseHappyPath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedReleasableOrder(t, true)

	breakdown, err := env.service.Release(ctx, order.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !breakdown.PlatformFee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected platform fee 15, got %s", breakdown.PlatformFee)
	}
	if !breakdown.ShopAmount.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected shop amount 85, got %s", breakdown.ShopAmount)
	}
	if !breakdown.DriverAmount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected driver amount 25, got %s", breakdown.DriverAmount)
	}

	var rows []models.Payout
	if err := env.db.Where("order_id = ?", order.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load payouts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected shop and driver rows, got %d", len(rows))
	}
	byType := map[enums.RecipientType]models.Payout{}
	for _, row := range rows {
		byType[row.RecipientType] = row
	}
	if _, ok := byType[enums.RecipientTypeWorkshop]; ok {
		t.Fatal("no workshop row expected when the order has no workshop")
	}
	if byType[enums.RecipientTypeShop].Status != enums.PayoutStatusPending {
		t.Fatal("shop payout must be pending")
	}

	var paymentStatus string
	env.db.Raw(`SELECT status FROM payments WHERE order_id = ?`, order.ID).Scan(&paymentStatus)
	if paymentStatus != string(enums.PaymentStatusReleased) {
		t.Fatalf("expected released payment, got %s", paymentStatus)
	}
	var row struct {
		PaymentStatus string
		PlatformFee   decimal.Decimal
	}
	env.db.Raw(`SELECT payment_status, platform_fee FROM orders WHERE id = ?`, order.ID).Scan(&row)
	if row.PaymentStatus != string(enums.OrderPaymentStatusReleased) {
		t.Fatalf("expected released order payment status, got %s", row.PaymentStatus)
	}
	if !row.PlatformFee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected platform fee persisted on order, got %s", row.PlatformFee)
	}

	var events int64
	env.db.Raw(`SELECT COUNT(*) FROM outbox_events WHERE event_type = ?`, enums.EventPayoutReleased).Scan(&events)
	if events != 1 {
		t.Fatalf("expected one payout_released event, got %d", events)
	}

	var raw string
	env.db.Raw(`SELECT payload FROM outbox_events WHERE event_type = ?`, enums.EventPayoutReleased).Scan(&raw)
	var envelope struct {
		Data payloads.PayoutReleasedEvent `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var driverUserID string
	env.db.Raw(`SELECT user_id FROM drivers WHERE id = ?`, order.DriverID).Scan(&driverUserID)
	if envelope.Data.DriverUserID == nil || envelope.Data.DriverUserID.String() != driverUserID {
		t.Fatalf("event driver user id = %v, want %s", envelope.Data.DriverUserID, driverUserID)
	}
}

func TestReleaseRecordsWorkshopWhenAttached(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order := env.seedReleasableOrder(t, true)
	workshopID := uuid.New()
	if err := env.db.Exec(`UPDATE orders SET workshop_id = ? WHERE id = ?`, workshopID, order.ID).Error; err != nil {
		t.Fatalf("attach workshop: %v", err)
	}

	if _, err := env.service.Release(context.Background(), order.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	var row models.Payout
	if err := env.db.Where("order_id = ? AND recipient_type = ?", order.ID, enums.RecipientTypeWorkshop).First(&row).Error; err != nil {
		t.Fatalf("load workshop payout: %v", err)
	}
	if row.Status != enums.PayoutStatusNotApplicable {
		t.Fatalf("workshop payout status = %s, want not_applicable", row.Status)
	}
	if !row.Amount.IsZero() {
		t.Fatalf("workshop payout amount = %s, want 0", row.Amount)
	}
	if row.RecipientID == nil || *row.RecipientID != workshopID {
		t.Fatalf("workshop payout recipient = %v, want %s", row.RecipientID, workshopID)
	}
}

func TestReleaseUsesFeeFrozenAtPlacement(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order := env.seedReleasableOrder(t, true)
	// A fee frozen under an older commission rate must survive a rate change.
	if err := env.db.Exec(`UPDATE orders SET platform_fee = ? WHERE id = ?`, "10", order.ID).Error; err != nil {
		t.Fatalf("set platform fee: %v", err)
	}

	breakdown, err := env.service.Release(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !breakdown.PlatformFee.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("platform fee = %s, want stored 10", breakdown.PlatformFee)
	}
	if !breakdown.ShopAmount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("shop amount = %s, want 90", breakdown.ShopAmount)
	}
}

func TestReleaseWithoutDriverSkipsDriverRow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order := env.seedReleasableOrder(t, false)

	breakdown, err := env.service.Release(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !breakdown.DriverAmount.IsZero() {
		t.Fatalf("expected zero driver share, got %s", breakdown.DriverAmount)
	}
	var count int64
	env.db.Raw(`SELECT COUNT(*) FROM payouts WHERE order_id = ? AND recipient_type = 'driver'`, order.ID).Scan(&count)
	if count != 0 {
		t.Fatal("expected no driver payout row")
	}
}

func TestReleaseIsExactlyOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedReleasableOrder(t, true)

	if _, err := env.service.Release(ctx, order.ID); err != nil {
		t.Fatalf("first release: %v", err)
	}
	_, err := env.service.Release(ctx, order.ID)
	assertCode(t, err, pkgerrors.CodeConflict)

	var count int64
	env.db.Raw(`SELECT COUNT(*) FROM payouts WHERE order_id = ?`, order.ID).Scan(&count)
	if count != 3 {
		t.Fatalf("second release must not add payout rows, got %d", count)
	}
}

func TestReleaseRequiresCompletedOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order := env.seedReleasableOrder(t, true)
	env.db.Exec(`UPDATE orders SET status = 'delivered' WHERE id = ?`, order.ID)

	_, err := env.service.Release(context.Background(), order.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestReleaseRequiresEscrowedPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order := env.seedReleasableOrder(t, true)
	env.db.Exec(`UPDATE payments SET status = 'processing' WHERE order_id = ?`, order.ID)

	_, err := env.service.Release(context.Background(), order.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestReleaseUnknownOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.service.Release(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}
