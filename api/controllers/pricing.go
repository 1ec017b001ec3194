package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type tierRequest struct {
	Threshold int  `json:"threshold" validate:"required,min=1"`
	Pct       *int `json:"pct" validate:"required,gte=0,lte=100"`
	Priority  *int `json:"priority,omitempty" validate:"omitempty,gte=0"`
}

type createRuleSetRequest struct {
	Name             string        `json:"name" validate:"required,min=1"`
	EffectiveFrom    *time.Time    `json:"effectiveFrom,omitempty"`
	UnitPriceCents   *int64        `json:"unitPriceCents" validate:"required,gte=0"`
	UnitWeightKg     *float64      `json:"unitWeightKg" validate:"required,gt=0"`
	ShipRatePerKgKm  *float64      `json:"shipRatePerKgKm" validate:"required,gte=0"`
	ShippingMaxRatio *float64      `json:"shippingMaxRatio" validate:"required,gte=0,lte=1"`
	Tiers            []tierRequest `json:"tiers,omitempty" validate:"omitempty,dive"`
}

type replaceTiersRequest struct {
	Tiers []tierRequest `json:"tiers" validate:"required,min=1,dive"`
}

func tierInputs(reqs []tierRequest) []pricing.TierInput {
	out := make([]pricing.TierInput, 0, len(reqs))
	for _, t := range reqs {
		out = append(out, pricing.TierInput{Threshold: t.Threshold, Pct: *t.Pct, Priority: t.Priority})
	}
	return out
}

func actorFromRequest(r *http.Request) pricing.Actor {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return pricing.Actor{UserID: p.UserID, Role: string(p.Role)}
}

// AdminCreateRuleSet stores a new rule set; it becomes active at effectiveFrom.
func AdminCreateRuleSet(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var req createRuleSetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"name": "is required"}))
			return
		}

		input := pricing.CreateRuleSetInput{
			Name:             req.Name,
			UnitPriceCents:   *req.UnitPriceCents,
			UnitWeightKg:     *req.UnitWeightKg,
			ShipRatePerKgKm:  *req.ShipRatePerKgKm,
			ShippingMaxRatio: *req.ShippingMaxRatio,
			Tiers:            tierInputs(req.Tiers),
		}
		if req.EffectiveFrom != nil {
			input.EffectiveFrom = *req.EffectiveFrom
		}

		rs, err := svc.CreateRuleSet(r.Context(), actorFromRequest(r), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":            rs.ID,
			"effectiveFrom": rs.EffectiveFrom,
		})
	}
}

// AdminReplaceTiers swaps the full tier list of a rule set.
func AdminReplaceTiers(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "ruleSetId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule set id"))
			return
		}

		var req replaceTiersRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rs, err := svc.ReplaceTiers(r.Context(), actorFromRequest(r), id, tierInputs(req.Tiers))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"ruleSetId": rs.ID,
			"tiers":     len(rs.Tiers),
		})
	}
}

func AdminActiveRuleSet(svc pricing.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		rs, err := svc.Active(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, rs)
	}
}
