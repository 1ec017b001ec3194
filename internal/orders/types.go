package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/allocation"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/geo"
)

// Request is a hypothetical or real order for quantity units shipped to ShipTo.
type Request struct {
	Quantity  int       `json:"quantity"`
	ShipTo    geo.Point `json:"shipTo"`
	ClientRef *string   `json:"clientRef,omitempty"`
}

// CreateOrderInput carries an already validated order request plus caller context.
type CreateOrderInput struct {
	Request        Request
	IdempotencyKey string
	CallerID       *string
	CallerRole     string
}

// Totals is the persisted pricing of an order.
type Totals struct {
	UnitPriceCents int64 `json:"unitPriceCents"`
	SubtotalCents  int64 `json:"subtotalCents"`
	DiscountPct    int   `json:"discountPct"`
	DiscountCents  int64 `json:"discountCents"`
	ShippingCents  int64 `json:"shippingCents"`
	TotalCents     int64 `json:"totalCents"`
}

// Snapshot is an order as committed. Replays return the stored snapshot unchanged.
type Snapshot struct {
	OrderID        uuid.UUID         `json:"orderId"`
	IdempotencyKey string            `json:"-"`
	RuleSetID      uuid.UUID         `json:"ruleSetId"`
	Request        Request           `json:"request"`
	Totals         Totals            `json:"totals"`
	Allocation     []allocation.Item `json:"allocation"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Outcome tags the result of CreateOrder.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeReplayed  Outcome = "replayed"
	OutcomeRejected  Outcome = "rejected"
)

// RejectReason names the business rule that refused an order.
type RejectReason string

const (
	RejectInsufficientStock RejectReason = RejectReason(pricing.ReasonInsufficientStock)
	RejectShippingRatio     RejectReason = RejectReason(pricing.ReasonShippingRatio)
	RejectNoRuleSet         RejectReason = "NO_ACTIVE_RULESET"
)

// CreateResult is the tagged outcome of CreateOrder. Snapshot is set for
// committed and replayed outcomes; Reason and Details for rejections.
type CreateResult struct {
	Outcome  Outcome
	Snapshot *Snapshot
	Reason   RejectReason
	Details  map[string]any
}

// Replayed reports whether the result came from an earlier commit.
func (r *CreateResult) Replayed() bool {
	return r != nil && r.Outcome == OutcomeReplayed
}

// Err converts a rejection into the typed error the HTTP layer renders.
// It returns nil for committed and replayed outcomes.
func (r *CreateResult) Err() error {
	if r == nil || r.Outcome != OutcomeRejected {
		return nil
	}
	switch r.Reason {
	case RejectInsufficientStock:
		return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock to fulfill order").WithDetails(r.Details)
	case RejectShippingRatio:
		return pkgerrors.New(pkgerrors.CodeShippingRatio, "shipping cost exceeds allowed ratio").WithDetails(r.Details)
	case RejectNoRuleSet:
		return pkgerrors.New(pkgerrors.CodeNoRuleSet, "no active pricing ruleset")
	default:
		return pkgerrors.New(pkgerrors.CodeConflict, "order rejected")
	}
}

// QuoteResult is advisory pricing for a request; nothing is persisted.
type QuoteResult struct {
	RuleSetID  uuid.UUID       `json:"ruleSetId"`
	Input      Request         `json:"input"`
	Totals     pricing.Totals  `json:"totals"`
	Allocation allocation.Plan `json:"allocation"`
}
