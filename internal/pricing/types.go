package pricing

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/allocation"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// Tier is a volume discount step.
type Tier struct {
	Threshold int `json:"threshold"`
	Pct       int `json:"pct"`
	Priority  int `json:"priority"`
}

// RuleSet is the pricing configuration active at a point in time.
type RuleSet struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	EffectiveFrom    time.Time `json:"effectiveFrom"`
	UnitPriceCents   int64     `json:"unitPriceCents"`
	UnitWeightKg     float64   `json:"unitWeightKg"`
	ShipRatePerKgKm  float64   `json:"shipRatePerKgKm"`
	ShippingMaxRatio float64   `json:"shippingMaxRatio"`
	Tiers            []Tier    `json:"tiers"`
}

// Rates exposes the shipping inputs the allocator needs.
func (r RuleSet) Rates() allocation.Rates {
	return allocation.Rates{
		UnitWeightKg:    r.UnitWeightKg,
		ShipRatePerKgKm: r.ShipRatePerKgKm,
	}
}

// Reason explains why a quote cannot be turned into an order.
type Reason string

const (
	ReasonInsufficientStock Reason = "INSUFFICIENT_STOCK"
	ReasonShippingRatio     Reason = "SHIPPING_EXCEEDS_15_PERCENT"
)

func ruleSetFromModel(m *models.PricingRuleSet) *RuleSet {
	tiers := make([]Tier, 0, len(m.Tiers))
	for _, t := range m.Tiers {
		tiers = append(tiers, Tier{Threshold: t.Threshold, Pct: t.Pct, Priority: t.Priority})
	}
	return &RuleSet{
		ID:               m.ID,
		Name:             m.Name,
		EffectiveFrom:    m.EffectiveFrom,
		UnitPriceCents:   m.UnitPriceCents,
		UnitWeightKg:     m.UnitWeightKg,
		ShipRatePerKgKm:  m.ShipRatePerKgKm,
		ShippingMaxRatio: m.ShippingMaxRatio,
		Tiers:            tiers,
	}
}
