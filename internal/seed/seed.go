// Package seed loads the reference warehouses and the default pricing rule set.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/warehouses"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

const DefaultRuleSetName = "Default v1"

// Warehouses are the six reference stocking locations.
var Warehouses = []models.Warehouse{
	{Name: "Los Angeles", Lat: 33.9425, Lng: -118.408056, StockUnits: 355},
	{Name: "New York", Lat: 40.639722, Lng: -73.778889, StockUnits: 578},
	{Name: "São Paulo", Lat: -23.435556, Lng: -46.473056, StockUnits: 265},
	{Name: "Paris", Lat: 49.009722, Lng: 2.547778, StockUnits: 694},
	{Name: "Warsaw", Lat: 52.165833, Lng: 20.967222, StockUnits: 245},
	{Name: "Hong Kong", Lat: 22.308889, Lng: 113.914444, StockUnits: 419},
}

// DefaultRuleSet returns the rule set new deployments price against.
func DefaultRuleSet(effectiveFrom time.Time) models.PricingRuleSet {
	return models.PricingRuleSet{
		Name:             DefaultRuleSetName,
		EffectiveFrom:    effectiveFrom,
		UnitPriceCents:   15000,
		UnitWeightKg:     0.365,
		ShipRatePerKgKm:  0.01,
		ShippingMaxRatio: 0.15,
		Tiers: []models.DiscountTier{
			{Threshold: 250, Pct: 20, Priority: 4},
			{Threshold: 100, Pct: 15, Priority: 3},
			{Threshold: 50, Pct: 10, Priority: 2},
			{Threshold: 25, Pct: 5, Priority: 1},
		},
	}
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result reports what a seed run wrote.
type Result struct {
	Warehouses     int
	RuleSetCreated bool
}

// Run upserts the warehouses by name and creates the default rule set when no
// rule set with that name exists. Running it twice is harmless.
func Run(ctx context.Context, tx txRunner, repo warehouses.Repository, now time.Time) (*Result, error) {
	if tx == nil || repo == nil {
		return nil, fmt.Errorf("tx runner and warehouse repository required")
	}

	res := &Result{}
	err := tx.WithTx(ctx, func(db *gorm.DB) error {
		whRepo := repo.WithTx(db)
		for _, wh := range Warehouses {
			row := wh
			if err := whRepo.UpsertByName(ctx, &row); err != nil {
				return fmt.Errorf("upsert warehouse %s: %w", wh.Name, err)
			}
			res.Warehouses++
		}

		var existing models.PricingRuleSet
		err := db.WithContext(ctx).Where("name = ?", DefaultRuleSetName).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup default rule set: %w", err)
		}

		rs := DefaultRuleSet(now.UTC())
		if err := db.WithContext(ctx).Create(&rs).Error; err != nil {
			return fmt.Errorf("create default rule set: %w", err)
		}
		res.RuleSetCreated = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
