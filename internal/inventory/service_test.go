package inventory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Exec(`
		CREATE TABLE parts (
			id TEXT PRIMARY KEY,
			shop_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			price NUMERIC NOT NULL DEFAULT 0,
			stock_qty INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`).Error; err != nil {
		t.Fatalf("create parts table: %v", err)
	}
	return db
}

func seedPart(t *testing.T, db *gorm.DB, id uuid.UUID, qty int, active bool) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO parts (id, shop_id, name, stock_qty, is_active) VALUES (?, ?, ?, ?, ?)`,
		id, uuid.New(), "brake pad", qty, active,
	).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var qty int
	if err := db.Raw(`SELECT stock_qty FROM parts WHERE id = ?`, id).Scan(&qty).Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return qty
}

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	partA := uuid.New()
	partB := uuid.New()
	seedPart(t, db, partA, 5, true)
	seedPart(t, db, partB, 1, true)

	svc := NewService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []Line{
			{PartID: partA, Qty: 3},
			{PartID: partB, Qty: 1},
		})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := stockOf(t, db, partA); got != 2 {
		t.Fatalf("part a stock = %d, want 2", got)
	}
	if got := stockOf(t, db, partB); got != 0 {
		t.Fatalf("part b stock = %d, want 0", got)
	}
}

func TestReserveInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	partA := uuid.New()
	partB := uuid.New()
	seedPart(t, db, partA, 5, true)
	seedPart(t, db, partB, 2, true)

	svc := NewService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []Line{
			{PartID: partA, Qty: 2},
			{PartID: partB, Qty: 3},
		})
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
	if !strings.Contains(domainErr.Message(), partB.String()) {
		t.Fatalf("error must name the insufficient part %s, got %q", partB, domainErr.Message())
	}

	// The earlier decrement must be rolled back with the transaction.
	if got := stockOf(t, db, partA); got != 5 {
		t.Fatalf("part a stock = %d, want 5 after rollback", got)
	}
	if got := stockOf(t, db, partB); got != 2 {
		t.Fatalf("part b stock = %d, want 2", got)
	}
}

func TestReserveConcurrentWritersLastUnit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	part := uuid.New()
	seedPart(t, db, part, 1, true)
	svc := NewService()

	// Retry on sqlite lock contention so the assertion is about the stock
	// guard, not the database's lock strategy.
	reserve := func() error {
		for {
			err := db.Transaction(func(tx *gorm.DB) error {
				return svc.Reserve(context.Background(), tx, []Line{{PartID: part, Qty: 1}})
			})
			if err != nil && isLockContention(err) {
				continue
			}
			return err
		}
	}

	var start sync.WaitGroup
	start.Add(1)
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			results <- reserve()
		}()
	}
	start.Done()

	var failures []error
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) != 1 {
		t.Fatalf("expected exactly one writer to lose, got %d failures: %v", len(failures), failures)
	}
	domainErr := pkgerrors.As(failures[0])
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for the losing writer, got %v", failures[0])
	}
	if got := stockOf(t, db, part); got != 0 {
		t.Fatalf("stock = %d, want 0 after exactly one reservation", got)
	}
}

func isLockContention(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func TestReserveUnknownPart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []Line{{PartID: uuid.New(), Qty: 1}})
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReserveInactivePart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	part := uuid.New()
	seedPart(t, db, part, 10, false)

	svc := NewService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []Line{{PartID: part, Qty: 1}})
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for inactive part, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	part := uuid.New()
	seedPart(t, db, part, 10, true)

	svc := NewService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, []Line{{PartID: part, Qty: 0}})
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestRestockReturnsQuantities(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	part := uuid.New()
	seedPart(t, db, part, 1, true)

	svc := NewService()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Restock(context.Background(), tx, []Line{{PartID: part, Qty: 4}})
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if got := stockOf(t, db, part); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}
