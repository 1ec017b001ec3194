package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PricingRuleSet holds the unit economics in force from EffectiveFrom onwards.
type PricingRuleSet struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name             string         `gorm:"column:name;not null"`
	EffectiveFrom    time.Time      `gorm:"column:effective_from;not null;index"`
	UnitPriceCents   int64          `gorm:"column:unit_price_cents;not null"`
	UnitWeightKg     float64        `gorm:"column:unit_weight_kg;not null"`
	ShipRatePerKgKm  float64        `gorm:"column:ship_rate_per_kg_km;not null"`
	ShippingMaxRatio float64        `gorm:"column:shipping_max_ratio;not null"`
	CreatedByUserID  *string        `gorm:"column:created_by_user_id"`
	Tiers            []DiscountTier `gorm:"foreignKey:RuleSetID"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (PricingRuleSet) TableName() string { return "pricing_rule_sets" }

func (r *PricingRuleSet) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DiscountTier grants Pct percent off once the ordered quantity reaches Threshold.
type DiscountTier struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RuleSetID uuid.UUID `gorm:"column:rule_set_id;type:uuid;not null;index"`
	Threshold int       `gorm:"column:threshold;not null"`
	Pct       int       `gorm:"column:pct;not null"`
	Priority  int       `gorm:"column:priority;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DiscountTier) TableName() string { return "discount_tiers" }

func (d *DiscountTier) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
