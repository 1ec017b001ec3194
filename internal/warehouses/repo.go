package warehouses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/pagination"
)

// Repository defines persistence operations for warehouses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListAll(ctx context.Context) ([]models.Warehouse, error)
	List(ctx context.Context, params pagination.Params) ([]models.Warehouse, int64, error)
	ListBelowStock(ctx context.Context, threshold int) ([]models.Warehouse, error)
	ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	UpsertByName(ctx context.Context, wh *models.Warehouse) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a warehouses repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListAll returns every warehouse in insertion-stable order.
func (r *repository) ListAll(ctx context.Context) ([]models.Warehouse, error) {
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// List returns one page of warehouses ordered by name together with the total count.
func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Warehouse, int64, error) {
	p := params.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Warehouse{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListBelowStock(ctx context.Context, threshold int) ([]models.Warehouse, error) {
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).
		Where("stock_units < ?", threshold).
		Order("stock_units ASC").
		Find(&rows).Error
	return rows, err
}

// ConditionalDecrement removes qty units only if the warehouse still holds at
// least qty. The check and the write are a single UPDATE so concurrent callers
// cannot drive stock negative. It reports whether a row was changed.
func (r *repository) ConditionalDecrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Where("id = ? AND stock_units >= ?", id, qty).
		UpdateColumn("stock_units", gorm.Expr("stock_units - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpsertByName inserts wh or refreshes location and stock of the same-named row.
func (r *repository) UpsertByName(ctx context.Context, wh *models.Warehouse) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"lat", "lng", "stock_units", "updated_at"}),
		}).
		Create(wh).Error
}
