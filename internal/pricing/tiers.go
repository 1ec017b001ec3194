package pricing

import (
	"cmp"
	"slices"
)

// OrderTiers returns a copy of tiers in evaluation order: priority descending,
// then threshold descending, then original position.
func OrderTiers(tiers []Tier) []Tier {
	ordered := slices.Clone(tiers)
	slices.SortStableFunc(ordered, func(a, b Tier) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(b.Threshold, a.Threshold)
	})
	return ordered
}

// SelectDiscountPct returns the pct of the first tier in ordered whose
// threshold is met by qty, or 0 when none qualifies. ordered must already be
// in evaluation order.
func SelectDiscountPct(qty int, ordered []Tier) int {
	idx := slices.IndexFunc(ordered, func(t Tier) bool { return qty >= t.Threshold })
	if idx < 0 {
		return 0
	}
	return ordered[idx].Pct
}
