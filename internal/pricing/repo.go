package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// Repository persists rule sets and their tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, asOf time.Time) (*RuleSet, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingRuleSet, error)
	Create(ctx context.Context, ruleSet *models.PricingRuleSet) error
	ReplaceTiers(ctx context.Context, ruleSetID uuid.UUID, tiers []models.DiscountTier) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pricing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func orderedTiers(db *gorm.DB) *gorm.DB {
	return db.Order("priority DESC").Order("threshold DESC")
}

// FindActive returns the rule set with the latest effective_from not after
// asOf, tiers in evaluation order. It returns nil, nil when none qualifies.
func (r *repository) FindActive(ctx context.Context, asOf time.Time) (*RuleSet, error) {
	var rs models.PricingRuleSet
	err := r.db.WithContext(ctx).
		Preload("Tiers", orderedTiers).
		Where("effective_from <= ?", asOf.UTC()).
		Order("effective_from DESC").
		First(&rs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ruleSetFromModel(&rs), nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingRuleSet, error) {
	var rs models.PricingRuleSet
	err := r.db.WithContext(ctx).
		Preload("Tiers", orderedTiers).
		Where("id = ?", id).
		First(&rs).Error
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func (r *repository) Create(ctx context.Context, ruleSet *models.PricingRuleSet) error {
	return r.db.WithContext(ctx).Create(ruleSet).Error
}

// ReplaceTiers deletes every tier of the rule set and inserts tiers in their place.
// Callers wanting atomicity must bind the repository to a transaction first.
func (r *repository) ReplaceTiers(ctx context.Context, ruleSetID uuid.UUID, tiers []models.DiscountTier) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("rule_set_id = ?", ruleSetID).Delete(&models.DiscountTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	for i := range tiers {
		tiers[i].RuleSetID = ruleSetID
	}
	return db.Create(&tiers).Error
}
