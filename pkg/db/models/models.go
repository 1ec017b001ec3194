package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Warehouse{},
		&PricingRuleSet{},
		&DiscountTier{},
		&Order{},
		&OrderAllocation{},
		&OutboxEvent{},
	}
}
