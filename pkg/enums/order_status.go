package enums

// OrderStatus tracks an order's lifecycle. Orders are only ever created today.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
)
