package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// ratioEpsilon absorbs float noise in discounted*maxRatio before flooring.
const ratioEpsilon = 1e-6

// Input is everything ComputeTotals needs. Tiers may be in any order.
type Input struct {
	Quantity         int
	UnitPriceCents   int64
	Tiers            []Tier
	ShippingCents    int64
	ShippingMaxRatio float64
	Unallocated      int
}

// Totals is the priced outcome of a quote or order.
type Totals struct {
	UnitPriceCents int64   `json:"unitPriceCents"`
	SubtotalCents  int64   `json:"subtotalCents"`
	DiscountPct    int     `json:"discountPct"`
	DiscountCents  int64   `json:"discountCents"`
	ShippingCents  int64   `json:"shippingCents"`
	TotalCents     int64   `json:"totalCents"`
	ShippingRatio  float64 `json:"shippingRatio"`
	Valid          bool    `json:"valid"`
	Reason         Reason  `json:"reason,omitempty"`
}

// ComputeTotals prices qty units and checks the result is orderable.
// Stock shortfall takes precedence over the shipping ratio check.
func ComputeTotals(in Input) Totals {
	subtotal := int64(in.Quantity) * in.UnitPriceCents
	pct := SelectDiscountPct(in.Quantity, OrderTiers(in.Tiers))
	discount := int64(math.Floor(float64(subtotal)*(float64(pct)/100) + 0.5))
	discounted := subtotal - discount

	totals := Totals{
		UnitPriceCents: in.UnitPriceCents,
		SubtotalCents:  subtotal,
		DiscountPct:    pct,
		DiscountCents:  discount,
		ShippingCents:  in.ShippingCents,
		TotalCents:     discounted + in.ShippingCents,
		ShippingRatio:  shippingRatio(in.ShippingCents, discounted),
	}

	switch {
	case in.Unallocated > 0:
		totals.Reason = ReasonInsufficientStock
	case in.ShippingCents > MaxShippingCents(discounted, in.ShippingMaxRatio):
		totals.Reason = ReasonShippingRatio
	}
	totals.Valid = totals.Reason == ""
	return totals
}

// MaxShippingCents is the largest shipping charge allowed against discounted cents.
func MaxShippingCents(discounted int64, maxRatio float64) int64 {
	return int64(math.Floor(float64(discounted)*maxRatio + ratioEpsilon))
}

func shippingRatio(shipping, discounted int64) float64 {
	if discounted == 0 {
		return 0
	}
	return decimal.NewFromInt(shipping).
		DivRound(decimal.NewFromInt(discounted), 4).
		InexactFloat64()
}
