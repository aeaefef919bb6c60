package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/internal/subscriptions"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/metrics"
)

const (
	providerStripe = "stripe"

	// eventIDIndex is the unique index rejecting replayed event ids at the
	// database level.
	eventIDIndex = "webhook_events_event_id_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dispatcher interface {
	Deliver(ctx context.Context, delivery notifications.Delivery)
}

type adminLookup interface {
	FindAgencyAdminIDs(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error)
}

// ServiceParams collects the webhook sync dependencies.
type ServiceParams struct {
	SubscriptionRepo  subscriptions.Repository
	EventRepo         EventRepository
	StripeClient      subscriptions.StripeSubscriptionClient
	TransactionRunner txRunner
	Guard             *IdempotencyGuard
	Dispatcher        dispatcher
	Admins            adminLookup
	Metrics           *metrics.WorkflowMetrics
	Logger            *logger.Logger
}

// Service mirrors Stripe subscription lifecycle events into local state.
// Processing is idempotent per event id: the redis guard filters hot
// replays, the webhook_events unique index rejects the rest.
type Service struct {
	subs     subscriptions.Repository
	events   EventRepository
	stripe   subscriptions.StripeSubscriptionClient
	txRunner txRunner
	guard    *IdempotencyGuard
	notify   dispatcher
	admins   adminLookup
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
}

// NewService validates and wires the webhook sync service.
func NewService(params ServiceParams) (*Service, error) {
	if params.SubscriptionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.EventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification dispatcher required")
	}
	if params.Admins == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin lookup required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		subs:     params.SubscriptionRepo,
		events:   params.EventRepo,
		stripe:   params.StripeClient,
		txRunner: params.TransactionRunner,
		guard:    params.Guard,
		notify:   params.Dispatcher,
		admins:   params.Admins,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process handles one verified Stripe event. Replays return nil without
// touching subscription state.
func (s *Service) Process(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	eventType := string(event.Type)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": eventType,
	})

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		// Redis being down must not drop billing events; the DB index still
		// protects against replays.
		s.logg.Error(logCtx, "idempotency guard unavailable", err)
	}
	if seen {
		s.metrics.IncWebhookEvent(eventType, "duplicate")
		s.logg.Info(logCtx, "event already processed")
		return nil
	}

	var synced *models.Subscription
	replay := false
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		record := &models.WebhookEvent{
			Provider:  providerStripe,
			EventID:   event.ID,
			EventType: eventType,
		}
		if event.Data != nil {
			record.Payload = json.RawMessage(event.Data.Raw)
		}
		if err := events.Create(ctx, record); err != nil {
			if db.IsUniqueViolation(err, eventIDIndex) {
				replay = true
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
		}

		synced, err = s.handleEvent(ctx, tx, event)
		if err != nil {
			return err
		}
		return events.MarkProcessed(ctx, event.ID, time.Now().UTC())
	})
	if err != nil {
		s.metrics.IncWebhookEvent(eventType, "failed")
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Error(logCtx, "release idempotency key failed", delErr)
		}
		return err
	}
	if replay {
		s.metrics.IncWebhookEvent(eventType, "duplicate")
		s.logg.Info(logCtx, "event replay ignored")
		return nil
	}

	s.metrics.IncWebhookEvent(eventType, "processed")
	if synced != nil {
		s.notifyAdmins(ctx, synced)
	}
	return nil
}

// handleEvent resolves the subscription payload for the event types we
// mirror; anything else is acknowledged untouched.
func (s *Service) handleEvent(ctx context.Context, tx *gorm.DB, event *stripe.Event) (*models.Subscription, error) {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, tx, &stripeSub)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		subscriptionID := event.GetObjectValue("subscription")
		if subscriptionID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing from invoice event")
		}
		stripeSub, err := s.stripe.Get(ctx, subscriptionID, &stripe.SubscriptionParams{})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
		}
		return s.syncSubscription(ctx, tx, stripeSub)
	default:
		return nil, nil
	}
}

func (s *Service) syncSubscription(ctx context.Context, tx *gorm.DB, stripeSub *stripe.Subscription) (*models.Subscription, error) {
	if stripeSub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	repo := s.subs.WithTx(tx)

	stored, err := repo.FindByStripeID(ctx, stripeSub.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	agencyID, metadataErr := subscriptions.AgencyIDFromMetadata(stripeSub.Metadata)
	if metadataErr != nil && stored != nil {
		agencyID = stored.AgencyID
		metadataErr = nil
	}
	if metadataErr != nil {
		return nil, metadataErr
	}

	var planID *uuid.UUID
	if priceID := subscriptions.PriceIDFromStripe(stripeSub); priceID != "" {
		plan, err := repo.FindPlanByPriceID(ctx, priceID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve plan")
		}
		if plan != nil {
			planID = &plan.ID
		}
	}

	var synced *models.Subscription
	if stored == nil {
		built, err := subscriptions.BuildSubscriptionFromStripe(stripeSub, agencyID, planID)
		if err != nil {
			return nil, err
		}
		if err := repo.Create(ctx, built); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		synced = built
	} else {
		if err := subscriptions.UpdateSubscriptionFromStripe(stored, stripeSub, planID); err != nil {
			return nil, err
		}
		if err := repo.Update(ctx, stored); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}
		synced = stored
	}

	agency, err := repo.FindAgency(ctx, synced.AgencyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
	}
	active := synced.Status.IsActive()
	if agency.SubscriptionActive != active {
		err := repo.UpdateAgency(ctx, agency.ID, map[string]any{"subscription_active": active})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agency subscription flag")
		}
	}
	return synced, nil
}

func (s *Service) notifyAdmins(ctx context.Context, subscription *models.Subscription) {
	adminIDs, err := s.admins.FindAgencyAdminIDs(ctx, subscription.AgencyID)
	if err != nil {
		s.logg.Error(ctx, "agency admin lookup failed", err)
		return
	}
	message := fmt.Sprintf("Your subscription is now %s.", subscription.Status)
	for _, adminID := range adminIDs {
		s.notify.Deliver(ctx, notifications.Delivery{
			RecipientID: adminID,
			AgencyID:    subscription.AgencyID,
			Type:        enums.NotificationTypeSubscriptionUpdated,
			Title:       "Subscription updated",
			Message:     message,
			Link:        notifications.SubscriptionLink(),
		})
	}
}
