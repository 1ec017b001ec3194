package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
)

const defaultLowStockThreshold = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lowStockLister interface {
	ListBelowStock(ctx context.Context, threshold int) ([]models.Warehouse, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type LowStockJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Warehouses lowStockLister
	Outbox     outboxEmitter
	Threshold  int
}

// NewLowStockJob emits a warehouse_stock_low event for every warehouse holding
// fewer units than the threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Warehouses == nil {
		return nil, fmt.Errorf("warehouse repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &lowStockJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Warehouses,
		outbox:    params.Outbox,
		threshold: threshold,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      lowStockLister
	outbox    outboxEmitter
	threshold int
}

func (j *lowStockJob) Name() string { return "low-stock" }

// Run emits one event per warehouse in its own transaction. A failing
// warehouse does not stop the rest; all failures are returned together.
func (j *lowStockJob) Run(ctx context.Context) error {
	rows, err := j.repo.ListBelowStock(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("list low stock warehouses: %w", err)
	}

	var errs error
	emitted := 0
	for _, wh := range rows {
		event := outbox.DomainEvent{
			EventType:     enums.EventWarehouseStockLow,
			AggregateType: enums.AggregateWarehouse,
			AggregateID:   wh.ID,
			Data: payloads.WarehouseStockLowEvent{
				WarehouseID: wh.ID,
				Name:        wh.Name,
				StockUnits:  wh.StockUnits,
				Threshold:   j.threshold,
			},
		}
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.Emit(ctx, tx, event)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("warehouse %s: %w", wh.Name, err))
			continue
		}
		emitted++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"threshold": j.threshold,
		"low_stock": len(rows),
		"emitted":   emitted,
		"failed":    len(multierr.Errors(errs)),
	}), "low stock scan complete")
	return errs
}
