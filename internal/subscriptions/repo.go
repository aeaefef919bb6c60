package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
)

// Repository defines persistence operations for the subscription mirror.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	FindCurrentByAgency(ctx context.Context, agencyID uuid.UUID) (*models.Subscription, error)
	Create(ctx context.Context, subscription *models.Subscription) error
	Update(ctx context.Context, subscription *models.Subscription) error
	FindPlanByPriceID(ctx context.Context, priceID string) (*models.Plan, error)
	FindPlanByID(ctx context.Context, planID uuid.UUID) (*models.Plan, error)
	FindAgency(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error)
	UpdateAgency(ctx context.Context, agencyID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByStripeID returns nil, nil when the subscription has not been seen.
func (r *repository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&subscription).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) FindCurrentByAgency(ctx context.Context, agencyID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("agency_id = ?", agencyID).
		Order("created_at DESC").
		First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) Update(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) FindPlanByPriceID(ctx context.Context, priceID string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).
		Where("stripe_price_id = ?", priceID).
		First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindPlanByID(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).Where("id = ?", planID).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindAgency(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error) {
	var agency models.Agency
	err := r.db.WithContext(ctx).Where("id = ?", agencyID).First(&agency).Error
	if err != nil {
		return nil, err
	}
	return &agency, nil
}

func (r *repository) UpdateAgency(ctx context.Context, agencyID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Agency{}).
		Where("id = ?", agencyID).
		Updates(updates).Error
}
