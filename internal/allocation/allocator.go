package allocation

import (
	"cmp"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/geo"
)

// Warehouse is the allocator's view of a stocking location.
type Warehouse struct {
	ID         uuid.UUID
	Name       string
	Location   geo.Point
	StockUnits int
}

// Rates are the shipping economics taken from the active rule set.
type Rates struct {
	UnitWeightKg    float64
	ShipRatePerKgKm float64
}

// Item is the quantity shipped from a single warehouse.
type Item struct {
	WarehouseID   uuid.UUID `json:"warehouseId"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	DistanceKm    float64   `json:"distanceKm"`
	ShippingCents int64     `json:"shippingCents"`
}

// Plan is the outcome of an allocation run. Unallocated > 0 means stock ran out.
type Plan struct {
	Items       []Item `json:"items"`
	Unallocated int    `json:"unallocated"`
}

// ShippingCents sums shipping across every item.
func (p Plan) ShippingCents() int64 {
	var total int64
	for _, it := range p.Items {
		total += it.ShippingCents
	}
	return total
}

// AllocatedUnits sums the quantity across every item.
func (p Plan) AllocatedUnits() int {
	total := 0
	for _, it := range p.Items {
		total += it.Quantity
	}
	return total
}

// Allocate fills qty from the nearest warehouses first. Warehouses at equal
// distance keep their input order. Each warehouse is visited at most once and
// never asked for more than its stock.
func Allocate(qty int, dest geo.Point, warehouses []Warehouse, rates Rates) Plan {
	type candidate struct {
		wh   Warehouse
		dist float64
	}

	candidates := make([]candidate, 0, len(warehouses))
	for _, wh := range warehouses {
		candidates = append(candidates, candidate{wh: wh, dist: geo.HaversineKm(wh.Location, dest)})
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.dist, b.dist)
	})

	remaining := max(qty, 0)
	items := make([]Item, 0, len(candidates))
	for _, c := range candidates {
		if remaining <= 0 {
			break
		}
		take := min(c.wh.StockUnits, remaining)
		if take <= 0 {
			continue
		}

		shipDollars := float64(take) * rates.UnitWeightKg * c.dist * rates.ShipRatePerKgKm
		items = append(items, Item{
			WarehouseID:   c.wh.ID,
			Name:          c.wh.Name,
			Quantity:      take,
			DistanceKm:    roundTo(c.dist, 1),
			ShippingCents: int64(roundHalfUp(shipDollars * 100)),
		})
		remaining -= take
	}

	return Plan{Items: items, Unallocated: remaining}
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return roundHalfUp(v*scale) / scale
}
