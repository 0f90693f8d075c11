package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", shopID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindDeliveryByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ListAvailableDrivers fetches the candidate pool in stable creation order so
// tie-breaking in the distance scan stays deterministic.
func (r *repository) ListAvailableDrivers(ctx context.Context, limit int) ([]models.Driver, error) {
	var drivers []models.Driver
	err := r.db.WithContext(ctx).
		Where("is_available AND is_verified").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&drivers).Error
	return drivers, err
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
