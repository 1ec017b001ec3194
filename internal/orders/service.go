package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/allocation"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/warehouses"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/geo"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RuleSource resolves the rule set in force at now. pricing.Cache satisfies it.
type RuleSource interface {
	GetActive(ctx context.Context, now time.Time) (*pricing.RuleSet, error)
}

// Recorder observes order and quote outcomes.
type Recorder interface {
	OrderCommitted()
	OrderReplayed()
	OrderRejected(reason string)
	QuoteServed(valid bool)
}

type nopRecorder struct{}

func (nopRecorder) OrderCommitted()      {}
func (nopRecorder) OrderReplayed()       {}
func (nopRecorder) OrderRejected(string) {}
func (nopRecorder) QuoteServed(bool)     {}

// Service quotes and places orders.
type Service interface {
	Quote(ctx context.Context, req Request) (*QuoteResult, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateResult, error)
}

type service struct {
	repo       Repository
	warehouses warehouses.Repository
	rules      RuleSource
	tx         txRunner
	outbox     outboxPublisher
	metrics    Recorder
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the order orchestrators. A nil recorder disables metrics.
func NewService(repo Repository, warehouseRepo warehouses.Repository, rules RuleSource, tx txRunner, publisher outboxPublisher, recorder Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if warehouseRepo == nil {
		return nil, fmt.Errorf("warehouse repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("rule source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       repo,
		warehouses: warehouseRepo,
		rules:      rules,
		tx:         tx,
		outbox:     publisher,
		metrics:    recorder,
		logg:       logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// priced is one run of allocation and pricing against a fresh warehouse read.
type priced struct {
	ruleSet *pricing.RuleSet
	plan    allocation.Plan
	totals  pricing.Totals
}

func (s *service) price(ctx context.Context, req Request, now time.Time) (*priced, error) {
	rs, err := s.rules.GetActive(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active rule set")
	}
	if rs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoRuleSet, "no active pricing ruleset")
	}

	rows, err := s.warehouses.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouses")
	}
	stock := make([]allocation.Warehouse, 0, len(rows))
	for _, row := range rows {
		stock = append(stock, allocation.Warehouse{
			ID:         row.ID,
			Name:       row.Name,
			Location:   geo.Point{Lat: row.Lat, Lng: row.Lng},
			StockUnits: row.StockUnits,
		})
	}

	plan := allocation.Allocate(req.Quantity, req.ShipTo, stock, rs.Rates())
	totals := pricing.ComputeTotals(pricing.Input{
		Quantity:         req.Quantity,
		UnitPriceCents:   rs.UnitPriceCents,
		Tiers:            rs.Tiers,
		ShippingCents:    plan.ShippingCents(),
		ShippingMaxRatio: rs.ShippingMaxRatio,
		Unallocated:      plan.Unallocated,
	})
	return &priced{ruleSet: rs, plan: plan, totals: totals}, nil
}

// Quote prices req without persisting anything. It only fails when no rule
// set is active or storage is unavailable.
func (s *service) Quote(ctx context.Context, req Request) (*QuoteResult, error) {
	p, err := s.price(ctx, req, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.QuoteServed(p.totals.Valid)
	return &QuoteResult{
		RuleSetID:  p.ruleSet.ID,
		Input:      Request{Quantity: req.Quantity, ShipTo: req.ShipTo},
		Totals:     p.totals,
		Allocation: p.plan,
	}, nil
}

var errKeyConflict = errors.New("idempotency key already committed")

// stockShortfallError aborts a commit when a conditional decrement matched no row.
type stockShortfallError struct {
	warehouseID uuid.UUID
	requested   int
}

func (e *stockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock in warehouse %s for %d units", e.warehouseID, e.requested)
}

// CreateOrder places an order exactly once per idempotency key. Business
// refusals come back as a rejected result; only storage failures and protocol
// anomalies are returned as errors.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateResult, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required").
			WithDetails(map[string]string{"Idempotency-Key": "required"})
	}
	ctx = s.logg.WithIdempotencyKey(ctx, key)

	if result, err := s.replay(ctx, key); err != nil || result != nil {
		return result, err
	}

	now := s.now()
	p, err := s.price(ctx, input.Request, now)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNoRuleSet) {
			return s.reject(ctx, RejectNoRuleSet, nil), nil
		}
		return nil, err
	}
	if !p.totals.Valid {
		return s.reject(ctx, RejectReason(p.totals.Reason), gateDetails(input.Request, p)), nil
	}

	snapshot, err := s.commit(ctx, key, input, p, now)
	var shortfall *stockShortfallError
	switch {
	case errors.Is(err, errKeyConflict):
		result, lookupErr := s.replay(ctx, key)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if result == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateKey, "duplicate idempotency key")
		}
		return result, nil
	case errors.As(err, &shortfall):
		return s.reject(ctx, RejectInsufficientStock, map[string]any{
			"warehouseId": shortfall.warehouseID.String(),
			"requested":   shortfall.requested,
		}), nil
	case err != nil:
		return nil, err
	}

	s.metrics.OrderCommitted()
	s.logg.Info(s.logg.WithOrderID(ctx, snapshot.OrderID.String()), "order committed")
	return &CreateResult{Outcome: OutcomeCommitted, Snapshot: snapshot}, nil
}

func (s *service) replay(ctx context.Context, key string) (*CreateResult, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup idempotency key")
	}
	if existing == nil {
		return nil, nil
	}
	s.metrics.OrderReplayed()
	s.logg.Info(s.logg.WithOrderID(ctx, existing.ID.String()), "order replayed")
	return &CreateResult{Outcome: OutcomeReplayed, Snapshot: snapshotFromModel(existing)}, nil
}

func (s *service) reject(ctx context.Context, reason RejectReason, details map[string]any) *CreateResult {
	s.metrics.OrderRejected(string(reason))
	s.logg.Warn(s.logg.WithField(ctx, "reason", string(reason)), "order rejected")
	return &CreateResult{Outcome: OutcomeRejected, Reason: reason, Details: details}
}

// commit runs the order insert, the conditional stock decrements, the
// allocation rows and the outbox event in one transaction.
func (s *service) commit(ctx context.Context, key string, input CreateOrderInput, p *priced, now time.Time) (*Snapshot, error) {
	order := &models.Order{
		ID:              uuid.New(),
		IdempotencyKey:  key,
		CreatedByUserID: input.CallerID,
		Status:          enums.OrderStatusCreated,
		Quantity:        input.Request.Quantity,
		ShipToLat:       input.Request.ShipTo.Lat,
		ShipToLng:       input.Request.ShipTo.Lng,
		ClientRef:       input.Request.ClientRef,
		RuleSetID:       p.ruleSet.ID,
		UnitPriceCents:  p.totals.UnitPriceCents,
		SubtotalCents:   p.totals.SubtotalCents,
		DiscountPct:     p.totals.DiscountPct,
		DiscountCents:   p.totals.DiscountCents,
		ShippingCents:   p.totals.ShippingCents,
		TotalCents:      p.totals.TotalCents,
		CreatedAt:       now.Truncate(time.Microsecond),
	}

	rows := make([]models.OrderAllocation, 0, len(p.plan.Items))
	for i, item := range p.plan.Items {
		rows = append(rows, models.OrderAllocation{
			OrderID:       order.ID,
			WarehouseID:   item.WarehouseID,
			Position:      i,
			Quantity:      item.Quantity,
			DistanceKm:    item.DistanceKm,
			ShippingCents: item.ShippingCents,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inserted, err := repo.InsertOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		if inserted == InsertConflict {
			return errKeyConflict
		}

		stock := s.warehouses.WithTx(tx)
		for _, item := range decrementOrder(p.plan.Items) {
			ok, err := stock.ConditionalDecrement(ctx, item.WarehouseID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return &stockShortfallError{warehouseID: item.WarehouseID, requested: item.Quantity}
			}
		}

		if err := repo.InsertAllocationItems(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert allocations")
		}
		return s.outbox.Emit(ctx, tx, orderCreatedEvent(order, p.plan.Items, input))
	})
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		OrderID:        order.ID,
		IdempotencyKey: key,
		RuleSetID:      order.RuleSetID,
		Request:        input.Request,
		Totals:         totalsFromModel(order),
		Allocation:     p.plan.Items,
		CreatedAt:      order.CreatedAt,
	}, nil
}

// decrementOrder sorts a copy of items by warehouse id so concurrent orders
// take row locks in the same order.
func decrementOrder(items []allocation.Item) []allocation.Item {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b allocation.Item) int {
		return bytes.Compare(a.WarehouseID[:], b.WarehouseID[:])
	})
	return sorted
}

func orderCreatedEvent(order *models.Order, items []allocation.Item, input CreateOrderInput) outbox.DomainEvent {
	lines := make([]payloads.OrderAllocationLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, payloads.OrderAllocationLine{
			WarehouseID:   item.WarehouseID,
			Quantity:      item.Quantity,
			DistanceKm:    item.DistanceKm,
			ShippingCents: item.ShippingCents,
		})
	}
	var actor *outbox.ActorRef
	if input.CallerID != nil {
		actor = &outbox.ActorRef{UserID: *input.CallerID, Role: input.CallerRole}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    order.CreatedAt,
		Data: payloads.OrderCreatedEvent{
			OrderID:        order.ID,
			IdempotencyKey: order.IdempotencyKey,
			RuleSetID:      order.RuleSetID,
			Quantity:       order.Quantity,
			ClientRef:      order.ClientRef,
			SubtotalCents:  order.SubtotalCents,
			DiscountCents:  order.DiscountCents,
			ShippingCents:  order.ShippingCents,
			TotalCents:     order.TotalCents,
			Allocation:     lines,
			CreatedAt:      order.CreatedAt,
		},
	}
}

func gateDetails(req Request, p *priced) map[string]any {
	switch p.totals.Reason {
	case pricing.ReasonInsufficientStock:
		return map[string]any{
			"requested":   req.Quantity,
			"unallocated": p.plan.Unallocated,
		}
	case pricing.ReasonShippingRatio:
		discounted := p.totals.SubtotalCents - p.totals.DiscountCents
		return map[string]any{
			"shippingCents":    p.totals.ShippingCents,
			"maxShippingCents": pricing.MaxShippingCents(discounted, p.ruleSet.ShippingMaxRatio),
			"shippingRatio":    p.totals.ShippingRatio,
		}
	}
	return nil
}

func totalsFromModel(order *models.Order) Totals {
	return Totals{
		UnitPriceCents: order.UnitPriceCents,
		SubtotalCents:  order.SubtotalCents,
		DiscountPct:    order.DiscountPct,
		DiscountCents:  order.DiscountCents,
		ShippingCents:  order.ShippingCents,
		TotalCents:     order.TotalCents,
	}
}

func snapshotFromModel(order *models.Order) *Snapshot {
	items := make([]allocation.Item, 0, len(order.Allocations))
	for _, a := range order.Allocations {
		items = append(items, allocation.Item{
			WarehouseID:   a.WarehouseID,
			Name:          a.Warehouse.Name,
			Quantity:      a.Quantity,
			DistanceKm:    a.DistanceKm,
			ShippingCents: a.ShippingCents,
		})
	}
	return &Snapshot{
		OrderID:        order.ID,
		IdempotencyKey: order.IdempotencyKey,
		RuleSetID:      order.RuleSetID,
		Request: Request{
			Quantity:  order.Quantity,
			ShipTo:    geo.Point{Lat: order.ShipToLat, Lng: order.ShipToLng},
			ClientRef: order.ClientRef,
		},
		Totals:     totalsFromModel(order),
		Allocation: items,
		CreatedAt:  order.CreatedAt.UTC(),
	}
}
