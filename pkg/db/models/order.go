package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// Order is the immutable record of a committed purchase. One row per idempotency key.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	IdempotencyKey  string            `gorm:"column:idempotency_key;not null;uniqueIndex:orders_idempotency_key_key"`
	CreatedByUserID *string           `gorm:"column:created_by_user_id"`
	Status          enums.OrderStatus `gorm:"column:status;not null"`
	Quantity        int               `gorm:"column:quantity;not null"`
	ShipToLat       float64           `gorm:"column:ship_to_lat;not null"`
	ShipToLng       float64           `gorm:"column:ship_to_lng;not null"`
	ClientRef       *string           `gorm:"column:client_ref"`
	RuleSetID       uuid.UUID         `gorm:"column:rule_set_id;type:uuid;not null"`
	UnitPriceCents  int64             `gorm:"column:unit_price_cents;not null"`
	SubtotalCents   int64             `gorm:"column:subtotal_cents;not null"`
	DiscountPct     int               `gorm:"column:discount_pct;not null"`
	DiscountCents   int64             `gorm:"column:discount_cents;not null"`
	ShippingCents   int64             `gorm:"column:shipping_cents;not null"`
	TotalCents      int64             `gorm:"column:total_cents;not null"`
	Allocations     []OrderAllocation `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderAllocation is the slice of an order shipped from one warehouse.
type OrderAllocation struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	WarehouseID   uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null"`
	Warehouse     Warehouse `gorm:"foreignKey:WarehouseID"`
	Position      int       `gorm:"column:position;not null;default:0"`
	Quantity      int       `gorm:"column:quantity;not null"`
	DistanceKm    float64   `gorm:"column:distance_km;not null"`
	ShippingCents int64     `gorm:"column:shipping_cents;not null"`
}

func (OrderAllocation) TableName() string { return "order_allocations" }

func (a *OrderAllocation) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
