package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/outbox/payloads"
)

// Service assigns a driver to a ready order. Moving the order onward to
// picked_up stays a separate, caller-driven transition.
type Service interface {
	Assign(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	events outboxEmitter
	logg   *logger.Logger
}

// NewService wires the dispatcher.
func NewService(repo Repository, tx txRunner, events outboxEmitter, logg *logger.Logger) Service {
	return &service{repo: repo, tx: tx, events: events, logg: logg}
}

func (s *service) Assign(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusReady {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order is not ready for dispatch")
		}

		if _, err := txRepo.FindDeliveryByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a driver assigned")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing delivery")
		}

		shop, err := txRepo.FindShop(ctx, order.ShopID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}

		candidates, err := txRepo.ListAvailableDrivers(ctx, candidateLimit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list drivers")
		}
		driver, ok := nearestCandidate(shop, candidates)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no available drivers")
		}

		now := time.Now()
		pickup := shopPoint(shop)
		delivery = &models.Delivery{
			ID:         uuid.New(),
			OrderID:    order.ID,
			DriverID:   driver.ID,
			Status:     enums.DeliveryStatusAssigned,
			PickupLat:  pickup.lat,
			PickupLng:  pickup.lng,
			AssignedAt: now,
		}
		if err := txRepo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}
		if err := txRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"driver_id": driver.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach driver to order")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryAssigned,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.RoleSystem)},
			Data: payloads.DeliveryAssignedEvent{
				OrderID:      order.ID,
				DeliveryID:   delivery.ID,
				DriverID:     driver.ID,
				DriverUserID: driver.UserID,
				ShopID:       order.ShopID,
				AssignedAt:   now,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":    delivery.OrderID.String(),
		"delivery_id": delivery.ID.String(),
		"driver_id":   delivery.DriverID.String(),
	})
	s.logg.Info(logCtx, "driver assigned")
	return delivery, nil
}
