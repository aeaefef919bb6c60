package subscriptions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/authz"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SubscriptionView is the current subscription joined with its plan.
type SubscriptionView struct {
	Subscription models.Subscription `json:"subscription"`
	Plan         *models.Plan        `json:"plan,omitempty"`
}

// Service exposes the explicit subscription actions available to agency
// admins. All other mutation flows through the webhook sync.
type Service interface {
	GetCurrent(ctx context.Context, actor authz.Actor, agencyID uuid.UUID) (*SubscriptionView, error)
	CancelAtPeriodEnd(ctx context.Context, actor authz.Actor, agencyID uuid.UUID) (*models.Subscription, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	stripe StripeSubscriptionClient
}

// NewService wires subscription dependencies.
func NewService(repo Repository, tx txRunner, stripeClient StripeSubscriptionClient) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{repo: repo, tx: tx, stripe: stripeClient}, nil
}

func (s *service) GetCurrent(ctx context.Context, actor authz.Actor, agencyID uuid.UUID) (*SubscriptionView, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id required")
	}
	if !authz.Can(actor, authz.ActionManageSubscription, authz.Resource{AgencyID: agencyID}) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to view this agency's subscription")
	}

	subscription, err := s.repo.FindCurrentByAgency(ctx, agencyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription on record")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	view := &SubscriptionView{Subscription: *subscription}
	if subscription.PlanID != nil {
		plan, err := s.repo.FindPlanByID(ctx, *subscription.PlanID)
		if err == nil {
			view.Plan = plan
		}
	}
	return view, nil
}

// CancelAtPeriodEnd flags the remote subscription and mirrors the returned
// state locally. Remote billing stays authoritative: the local row takes
// whatever Stripe sends back.
func (s *service) CancelAtPeriodEnd(ctx context.Context, actor authz.Actor, agencyID uuid.UUID) (*models.Subscription, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id required")
	}
	if !authz.Can(actor, authz.ActionManageSubscription, authz.Resource{AgencyID: agencyID}) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to manage this agency's subscription")
	}

	stored, err := s.repo.FindCurrentByAgency(ctx, agencyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription on record")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if stored.CancelAtPeriodEnd {
		return stored, nil
	}

	remote, err := s.stripe.Update(ctx, stored.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stripe subscription")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByStripeID(ctx, stored.StripeSubscriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload subscription")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription disappeared during cancel")
		}
		if err := UpdateSubscriptionFromStripe(current, remote, nil); err != nil {
			return err
		}
		if err := repo.Update(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
		}
		stored = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}
