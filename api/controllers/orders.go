package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/allocation"
	"github.com/angelmondragon/orderdesk-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/geo"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

const (
	headerOrderID  = "X-Order-Id"
	headerRuleSet  = "X-Rule-Set-Id"
	headerReplayed = "X-Idempotency-Replayed"
)

type shipToRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type orderRequest struct {
	Quantity  int            `json:"quantity" validate:"required,min=1"`
	ShipTo    *shipToRequest `json:"shipTo" validate:"required"`
	ClientRef *string        `json:"clientRef,omitempty" validate:"omitempty,max=120"`
}

func (r orderRequest) toDomain() orders.Request {
	return orders.Request{
		Quantity:  r.Quantity,
		ShipTo:    geo.Point{Lat: *r.ShipTo.Lat, Lng: *r.ShipTo.Lng},
		ClientRef: r.ClientRef,
	}
}

type orderAllocationDTO struct {
	Items []allocation.Item `json:"items"`
}

type orderResponse struct {
	OrderID    uuid.UUID          `json:"orderId"`
	RuleSetID  uuid.UUID          `json:"ruleSetId"`
	Totals     orders.Totals      `json:"totals"`
	Allocation orderAllocationDTO `json:"allocation"`
}

func newOrderResponse(s *orders.Snapshot) orderResponse {
	items := s.Allocation
	if items == nil {
		items = []allocation.Item{}
	}
	return orderResponse{
		OrderID:    s.OrderID,
		RuleSetID:  s.RuleSetID,
		Totals:     s.Totals,
		Allocation: orderAllocationDTO{Items: items},
	}
}

// OrderQuote prices a hypothetical order without reserving stock.
func OrderQuote(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req orderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), req.toDomain())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if quote.Allocation.Items == nil {
			quote.Allocation.Items = []allocation.Item{}
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(headerRuleSet, quote.RuleSetID.String())
		responses.WriteSuccess(w, quote)
	}
}

// OrderCreate commits an order under the caller's Idempotency-Key. A replay of
// an earlier commit answers 200 with the stored result instead of 201.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		key, err := validators.IdempotencyKey(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithIdempotencyKey(ctx, key)
		}

		var req orderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			Request:        req.toDomain(),
			IdempotencyKey: key,
		}
		if p, ok := middleware.PrincipalFromContext(ctx); ok {
			userID := p.UserID
			input.CallerID = &userID
			input.CallerRole = string(p.Role)
		}

		result, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if rejectErr := result.Err(); rejectErr != nil {
			responses.WriteError(ctx, logg, w, rejectErr)
			return
		}

		snap := result.Snapshot
		w.Header().Set(headerOrderID, snap.OrderID.String())
		w.Header().Set(headerRuleSet, snap.RuleSetID.String())

		status := http.StatusCreated
		if result.Replayed() {
			w.Header().Set(headerReplayed, strconv.FormatBool(true))
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, newOrderResponse(snap))
	}
}
