package allocation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/geo"
)

var seedRates = Rates{UnitWeightKg: 0.365, ShipRatePerKgKm: 0.01}

func seedWarehouses() []Warehouse {
	return []Warehouse{
		{ID: uuid.New(), Name: "Los Angeles", Location: geo.Point{Lat: 33.9425, Lng: -118.408056}, StockUnits: 355},
		{ID: uuid.New(), Name: "New York", Location: geo.Point{Lat: 40.639722, Lng: -73.778889}, StockUnits: 578},
		{ID: uuid.New(), Name: "São Paulo", Location: geo.Point{Lat: -23.435556, Lng: -46.473056}, StockUnits: 265},
		{ID: uuid.New(), Name: "Paris", Location: geo.Point{Lat: 49.009722, Lng: 2.547778}, StockUnits: 694},
		{ID: uuid.New(), Name: "Warsaw", Location: geo.Point{Lat: 52.165833, Lng: 20.967222}, StockUnits: 245},
		{ID: uuid.New(), Name: "Hong Kong", Location: geo.Point{Lat: 22.308889, Lng: 113.914444}, StockUnits: 419},
	}
}

func TestAllocateNearestFirst(t *testing.T) {
	whs := seedWarehouses()
	dest := geo.Point{Lat: 48.8566, Lng: 2.3522} // Paris city centre

	plan := Allocate(800, dest, whs, seedRates)

	require.Zero(t, plan.Unallocated)
	require.Len(t, plan.Items, 2)
	require.Equal(t, "Paris", plan.Items[0].Name)
	require.Equal(t, 694, plan.Items[0].Quantity)
	require.Equal(t, "Warsaw", plan.Items[1].Name)
	require.Equal(t, 106, plan.Items[1].Quantity)
	require.Equal(t, 800, plan.AllocatedUnits())
}

func TestAllocateShippingCents(t *testing.T) {
	la := geo.Point{Lat: 33.9425, Lng: -118.408056}
	ny := geo.Point{Lat: 40.639722, Lng: -73.778889}
	whs := []Warehouse{{ID: uuid.New(), Name: "Los Angeles", Location: la, StockUnits: 100}}

	plan := Allocate(10, ny, whs, seedRates)

	dist := geo.HaversineKm(la, ny)
	require.Len(t, plan.Items, 1)
	require.Equal(t, int64(roundHalfUp(10*0.365*dist*0.01*100)), plan.Items[0].ShippingCents)
	require.Equal(t, int64(14506), plan.Items[0].ShippingCents)
	require.Equal(t, 3974.2, plan.Items[0].DistanceKm)
	require.Equal(t, plan.Items[0].ShippingCents, plan.ShippingCents())
}

func TestAllocateZeroDistanceIsFree(t *testing.T) {
	loc := geo.Point{Lat: 22.308889, Lng: 113.914444}
	whs := []Warehouse{{ID: uuid.New(), Name: "Hong Kong", Location: loc, StockUnits: 50}}

	plan := Allocate(10, loc, whs, seedRates)

	require.Len(t, plan.Items, 1)
	require.Zero(t, plan.Items[0].ShippingCents)
	require.Zero(t, plan.Items[0].DistanceKm)
}

func TestAllocateSkipsEmptyWarehouses(t *testing.T) {
	dest := geo.Point{Lat: 49.0, Lng: 2.5}
	whs := []Warehouse{
		{ID: uuid.New(), Name: "near-empty", Location: geo.Point{Lat: 49.0, Lng: 2.5}, StockUnits: 0},
		{ID: uuid.New(), Name: "far", Location: geo.Point{Lat: 52.0, Lng: 21.0}, StockUnits: 20},
	}

	plan := Allocate(5, dest, whs, seedRates)

	require.Len(t, plan.Items, 1)
	require.Equal(t, "far", plan.Items[0].Name)
	require.Zero(t, plan.Unallocated)
}

func TestAllocateReportsShortfall(t *testing.T) {
	whs := seedWarehouses()
	total := 0
	for _, w := range whs {
		total += w.StockUnits
	}

	plan := Allocate(total+25, geo.Point{}, whs, seedRates)

	require.Equal(t, 25, plan.Unallocated)
	require.Equal(t, total, plan.AllocatedUnits())
	require.Len(t, plan.Items, len(whs))
}

func TestAllocateTieKeepsInputOrder(t *testing.T) {
	loc := geo.Point{Lat: 10, Lng: 10}
	first := Warehouse{ID: uuid.New(), Name: "first", Location: loc, StockUnits: 3}
	second := Warehouse{ID: uuid.New(), Name: "second", Location: loc, StockUnits: 3}

	plan := Allocate(4, geo.Point{Lat: 11, Lng: 11}, []Warehouse{first, second}, seedRates)

	require.Len(t, plan.Items, 2)
	require.Equal(t, first.ID, plan.Items[0].WarehouseID)
	require.Equal(t, 3, plan.Items[0].Quantity)
	require.Equal(t, second.ID, plan.Items[1].WarehouseID)
	require.Equal(t, 1, plan.Items[1].Quantity)
}

func TestAllocateConservation(t *testing.T) {
	whs := seedWarehouses()
	dests := []geo.Point{{Lat: 0, Lng: 0}, {Lat: -33.9, Lng: 151.2}, {Lat: 64.1, Lng: -21.9}}

	for _, dest := range dests {
		for _, qty := range []int{1, 25, 300, 1000, 2556, 5000} {
			plan := Allocate(qty, dest, whs, seedRates)

			require.Equal(t, qty, plan.AllocatedUnits()+plan.Unallocated)
			seen := map[uuid.UUID]bool{}
			stock := map[uuid.UUID]int{}
			for _, w := range whs {
				stock[w.ID] = w.StockUnits
			}
			for _, it := range plan.Items {
				require.False(t, seen[it.WarehouseID], "warehouse visited twice")
				seen[it.WarehouseID] = true
				require.Positive(t, it.Quantity)
				require.LessOrEqual(t, it.Quantity, stock[it.WarehouseID])
			}
		}
	}
}
