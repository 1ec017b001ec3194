package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderAllocationLine is one warehouse slice of a created order.
type OrderAllocationLine struct {
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	Quantity      int       `json:"quantity"`
	DistanceKm    float64   `json:"distance_km"`
	ShippingCents int64     `json:"shipping_cents"`
}

// OrderCreatedEvent is emitted once per committed order.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID             `json:"order_id"`
	IdempotencyKey string                `json:"idempotency_key"`
	RuleSetID      uuid.UUID             `json:"rule_set_id"`
	Quantity       int                   `json:"quantity"`
	ClientRef      *string               `json:"client_ref,omitempty"`
	SubtotalCents  int64                 `json:"subtotal_cents"`
	DiscountCents  int64                 `json:"discount_cents"`
	ShippingCents  int64                 `json:"shipping_cents"`
	TotalCents     int64                 `json:"total_cents"`
	Allocation     []OrderAllocationLine `json:"allocation"`
	CreatedAt      time.Time             `json:"created_at"`
}

// WarehouseStockLowEvent flags a warehouse whose stock dropped under the threshold.
type WarehouseStockLowEvent struct {
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Name        string    `json:"name"`
	StockUnits  int       `json:"stock_units"`
	Threshold   int       `json:"threshold"`
}

// PricingRulesChangedEvent is emitted when a rule set is created or its tiers replaced.
type PricingRulesChangedEvent struct {
	RuleSetID     uuid.UUID `json:"rule_set_id"`
	Change        string    `json:"change"`
	EffectiveFrom time.Time `json:"effective_from"`
	TierCount     int       `json:"tier_count"`
}
