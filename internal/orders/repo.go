package orders

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// InsertResult distinguishes a fresh order row from an idempotency key collision.
type InsertResult int

const (
	InsertCreated InsertResult = iota
	InsertConflict
)

// Repository defines persistence operations for orders and their allocations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	InsertOrder(ctx context.Context, order *models.Order) (InsertResult, error)
	InsertAllocationItems(ctx context.Context, items []models.OrderAllocation) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByIdempotencyKey loads the order stored under key with its allocations
// in visit order. It returns nil, nil when no order exists.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Allocations.Warehouse").
		Where("idempotency_key = ?", key).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// InsertOrder creates the order row. A unique violation on the idempotency
// key is reported as InsertConflict rather than an error.
func (r *repository) InsertOrder(ctx context.Context, order *models.Order) (InsertResult, error) {
	err := r.db.WithContext(ctx).Omit("Allocations").Create(order).Error
	if err == nil {
		return InsertCreated, nil
	}
	if db.IsUniqueViolation(err, "orders_idempotency_key_key") {
		return InsertConflict, nil
	}
	return InsertCreated, err
}

func (r *repository) InsertAllocationItems(ctx context.Context, items []models.OrderAllocation) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Warehouse").Create(&items).Error
}
