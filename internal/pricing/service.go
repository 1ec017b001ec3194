package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
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

// Invalidator drops cached rule set lookups.
type Invalidator interface {
	Invalidate()
}

// TierInput is a tier as supplied by an administrator. A nil Priority
// defaults to the tier's 1-based position.
type TierInput struct {
	Threshold int
	Pct       int
	Priority  *int
}

// CreateRuleSetInput describes a new rule set. A zero EffectiveFrom means now.
type CreateRuleSetInput struct {
	Name             string
	EffectiveFrom    time.Time
	UnitPriceCents   int64
	UnitWeightKg     float64
	ShipRatePerKgKm  float64
	ShippingMaxRatio float64
	Tiers            []TierInput
}

// Actor identifies the administrator performing a change.
type Actor struct {
	UserID string
	Role   string
}

// AdminService manages rule sets and keeps the active rule set cache honest.
type AdminService interface {
	CreateRuleSet(ctx context.Context, actor Actor, input CreateRuleSetInput) (*models.PricingRuleSet, error)
	ReplaceTiers(ctx context.Context, actor Actor, ruleSetID uuid.UUID, tiers []TierInput) (*models.PricingRuleSet, error)
	Active(ctx context.Context) (*RuleSet, error)
}

type adminService struct {
	tx     txRunner
	repo   Repository
	cache  Invalidator
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewAdminService builds the rule set administration service.
func NewAdminService(tx txRunner, repo Repository, cache Invalidator, publisher outboxPublisher, logg *logger.Logger) (AdminService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if cache == nil {
		return nil, fmt.Errorf("rule set cache required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &adminService{
		tx:     tx,
		repo:   repo,
		cache:  cache,
		outbox: publisher,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *adminService) CreateRuleSet(ctx context.Context, actor Actor, input CreateRuleSetInput) (*models.PricingRuleSet, error) {
	if err := validateRuleSetInput(input); err != nil {
		return nil, err
	}
	if err := validateTiers(input.Tiers, false); err != nil {
		return nil, err
	}

	now := s.now()
	effectiveFrom := input.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = now
	}

	ruleSet := &models.PricingRuleSet{
		Name:             strings.TrimSpace(input.Name),
		EffectiveFrom:    effectiveFrom.UTC(),
		UnitPriceCents:   input.UnitPriceCents,
		UnitWeightKg:     input.UnitWeightKg,
		ShipRatePerKgKm:  input.ShipRatePerKgKm,
		ShippingMaxRatio: input.ShippingMaxRatio,
		CreatedByUserID:  optionalString(actor.UserID),
		Tiers:            tierModels(input.Tiers),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, ruleSet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rule set")
		}
		return s.emitChange(ctx, tx, actor, ruleSet, "created")
	})
	if err != nil {
		return nil, err
	}

	if !ruleSet.EffectiveFrom.After(now) {
		s.cache.Invalidate()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rule_set_id":    ruleSet.ID.String(),
		"effective_from": ruleSet.EffectiveFrom,
	}), "pricing rule set created")
	return ruleSet, nil
}

func (s *adminService) ReplaceTiers(ctx context.Context, actor Actor, ruleSetID uuid.UUID, tiers []TierInput) (*models.PricingRuleSet, error) {
	if ruleSetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule set id required")
	}
	if err := validateTiers(tiers, true); err != nil {
		return nil, err
	}

	var updated *models.PricingRuleSet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, ruleSetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rule set not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rule set")
		}

		rows := tierModels(tiers)
		if err := repo.ReplaceTiers(ctx, ruleSetID, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace tiers")
		}
		existing.Tiers = rows
		updated = existing
		return s.emitChange(ctx, tx, actor, existing, "tiers_replaced")
	})
	if err != nil {
		return nil, err
	}

	if !updated.EffectiveFrom.After(s.now()) {
		s.cache.Invalidate()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rule_set_id": ruleSetID.String(),
		"tiers":       len(tiers),
	}), "pricing tiers replaced")
	return updated, nil
}

// Active reads the active rule set straight from the store, bypassing the cache.
func (s *adminService) Active(ctx context.Context) (*RuleSet, error) {
	rs, err := s.repo.FindActive(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active rule set")
	}
	if rs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active rule set")
	}
	return rs, nil
}

func (s *adminService) emitChange(ctx context.Context, tx *gorm.DB, actor Actor, rs *models.PricingRuleSet, change string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPricingRulesChange,
		AggregateType: enums.AggregateRuleSet,
		AggregateID:   rs.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.PricingRulesChangedEvent{
			RuleSetID:     rs.ID,
			Change:        change,
			EffectiveFrom: rs.EffectiveFrom,
			TierCount:     len(rs.Tiers),
		},
	})
}

func validateRuleSetInput(input CreateRuleSetInput) error {
	details := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if input.UnitPriceCents < 0 {
		details["unitPriceCents"] = "must be >= 0"
	}
	if input.UnitWeightKg <= 0 {
		details["unitWeightKg"] = "must be > 0"
	}
	if input.ShipRatePerKgKm < 0 {
		details["shipRatePerKgKm"] = "must be >= 0"
	}
	if input.ShippingMaxRatio < 0 || input.ShippingMaxRatio > 1 {
		details["shippingMaxRatio"] = "must be between 0 and 1"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid rule set").WithDetails(details)
	}
	return nil
}

func validateTiers(tiers []TierInput, requireOne bool) error {
	if requireOne && len(tiers) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one tier required")
	}
	for i, t := range tiers {
		switch {
		case t.Threshold < 1:
			return pkgerrors.New(pkgerrors.CodeValidation, "tier threshold must be >= 1").
				WithDetails(map[string]any{"index": i})
		case t.Pct < 0 || t.Pct > 100:
			return pkgerrors.New(pkgerrors.CodeValidation, "tier pct must be between 0 and 100").
				WithDetails(map[string]any{"index": i})
		case t.Priority != nil && *t.Priority < 0:
			return pkgerrors.New(pkgerrors.CodeValidation, "tier priority must be >= 0").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

func tierModels(tiers []TierInput) []models.DiscountTier {
	rows := make([]models.DiscountTier, 0, len(tiers))
	for i, t := range tiers {
		priority := i + 1
		if t.Priority != nil {
			priority = *t.Priority
		}
		rows = append(rows, models.DiscountTier{
			Threshold: t.Threshold,
			Pct:       t.Pct,
			Priority:  priority,
		})
	}
	return rows
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
