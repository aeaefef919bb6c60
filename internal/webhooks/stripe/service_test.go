package stripewebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/internal/subscriptions"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
)

type stubSubscriptionRepo struct {
	existing      *models.Subscription
	agency        *models.Agency
	plan          *models.Plan
	created       []*models.Subscription
	updated       []*models.Subscription
	agencyUpdates map[string]any
}

func (s *stubSubscriptionRepo) WithTx(tx *gorm.DB) subscriptions.Repository {
	return s
}

func (s *stubSubscriptionRepo) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	if s.existing != nil && s.existing.StripeSubscriptionID == stripeSubscriptionID {
		return s.existing, nil
	}
	return nil, nil
}

func (s *stubSubscriptionRepo) FindCurrentByAgency(ctx context.Context, agencyID uuid.UUID) (*models.Subscription, error) {
	if s.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubSubscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	s.created = append(s.created, subscription)
	return nil
}

func (s *stubSubscriptionRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	s.updated = append(s.updated, subscription)
	return nil
}

func (s *stubSubscriptionRepo) FindPlanByPriceID(ctx context.Context, priceID string) (*models.Plan, error) {
	return s.plan, nil
}

func (s *stubSubscriptionRepo) FindPlanByID(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	if s.plan == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.plan, nil
}

func (s *stubSubscriptionRepo) FindAgency(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error) {
	if s.agency == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.agency, nil
}

func (s *stubSubscriptionRepo) UpdateAgency(ctx context.Context, agencyID uuid.UUID, updates map[string]any) error {
	s.agencyUpdates = updates
	if active, ok := updates["subscription_active"].(bool); ok && s.agency != nil {
		s.agency.SubscriptionActive = active
	}
	return nil
}

type stubEventRepo struct {
	created   []*models.WebhookEvent
	createErr error
	processed []string
}

func (s *stubEventRepo) WithTx(tx *gorm.DB) EventRepository {
	return s
}

func (s *stubEventRepo) Create(ctx context.Context, event *models.WebhookEvent) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, event)
	return nil
}

func (s *stubEventRepo) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	s.processed = append(s.processed, eventID)
	return nil
}

type stubStripeClient struct {
	getResp *stripe.Subscription
	getErr  error
}

func (s *stubStripeClient) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return s.getResp, s.getErr
}

func (s *stubStripeClient) Update(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, errors.New("not implemented")
}

type memoryIdempotencyStore struct {
	keys   map[string]string
	setErr error
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if m.keys == nil {
		m.keys = map[string]string{}
	}
	if _, exists := m.keys[key]; exists {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type stubDispatcher struct {
	deliveries []notifications.Delivery
}

func (s *stubDispatcher) Deliver(ctx context.Context, delivery notifications.Delivery) {
	s.deliveries = append(s.deliveries, delivery)
}

type stubAdminLookup struct {
	adminIDs []uuid.UUID
}

func (s *stubAdminLookup) FindAgencyAdminIDs(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error) {
	return s.adminIDs, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type webhookFixture struct {
	subs   *stubSubscriptionRepo
	events *stubEventRepo
	stripe *stubStripeClient
	store  *memoryIdempotencyStore
	notify *stubDispatcher
	svc    *Service
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	fx := &webhookFixture{
		subs:   &stubSubscriptionRepo{agency: &models.Agency{ID: uuid.New()}},
		events: &stubEventRepo{},
		stripe: &stubStripeClient{},
		store:  &memoryIdempotencyStore{},
		notify: &stubDispatcher{},
	}
	guard, err := NewIdempotencyGuard(fx.store, time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard constructor failed: %v", err)
	}
	svc, err := NewService(ServiceParams{
		SubscriptionRepo:  fx.subs,
		EventRepo:         fx.events,
		StripeClient:      fx.stripe,
		TransactionRunner: stubTxRunner{},
		Guard:             guard,
		Dispatcher:        fx.notify,
		Admins:            &stubAdminLookup{adminIDs: []uuid.UUID{uuid.New()}},
		Metrics:           nil,
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	fx.svc = svc
	return fx
}

func subscriptionEvent(t *testing.T, eventID string, eventType stripe.EventType, sub *stripe.Subscription) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal subscription: %v", err)
	}
	return &stripe.Event{
		ID:   eventID,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func activeStripeSubscription(agencyID uuid.UUID) *stripe.Subscription {
	return &stripe.Subscription{
		ID:       "sub_test",
		Status:   stripe.SubscriptionStatusActive,
		Metadata: map[string]string{"agency_id": agencyID.String()},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				Price:              &stripe.Price{ID: "price_basic_monthly"},
				CurrentPeriodStart: 1700000000,
				CurrentPeriodEnd:   1702592000,
			}},
		},
	}
}

func TestProcessCreatesSubscriptionAndActivatesAgency(t *testing.T) {
	fx := newWebhookFixture(t)
	agencyID := fx.subs.agency.ID
	fx.subs.plan = &models.Plan{ID: uuid.New()}

	event := subscriptionEvent(t, "evt_1", stripe.EventTypeCustomerSubscriptionCreated, activeStripeSubscription(agencyID))
	if err := fx.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(fx.subs.created) != 1 {
		t.Fatalf("expected subscription row created got %d", len(fx.subs.created))
	}
	created := fx.subs.created[0]
	if created.AgencyID != agencyID {
		t.Fatal("agency id must come from metadata")
	}
	if created.PlanID == nil || *created.PlanID != fx.subs.plan.ID {
		t.Fatal("plan must resolve from the stripe price")
	}
	if !fx.subs.agency.SubscriptionActive {
		t.Fatal("active subscription must flip the agency flag")
	}
	if len(fx.events.processed) != 1 || fx.events.processed[0] != "evt_1" {
		t.Fatalf("expected processed event marked got %v", fx.events.processed)
	}
	if len(fx.notify.deliveries) != 1 || fx.notify.deliveries[0].Type != enums.NotificationTypeSubscriptionUpdated {
		t.Fatalf("expected admin notification got %+v", fx.notify.deliveries)
	}
}

func TestProcessDeactivatesAgencyOnCancellation(t *testing.T) {
	fx := newWebhookFixture(t)
	agencyID := fx.subs.agency.ID
	fx.subs.agency.SubscriptionActive = true
	fx.subs.existing = &models.Subscription{
		ID:                   uuid.New(),
		AgencyID:             agencyID,
		StripeSubscriptionID: "sub_test",
		Status:               enums.SubscriptionStatusActive,
	}

	sub := activeStripeSubscription(agencyID)
	sub.Status = stripe.SubscriptionStatusCanceled
	event := subscriptionEvent(t, "evt_2", stripe.EventTypeCustomerSubscriptionDeleted, sub)
	if err := fx.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(fx.subs.updated) != 1 {
		t.Fatalf("expected subscription updated got %d", len(fx.subs.updated))
	}
	if fx.subs.updated[0].Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled status got %s", fx.subs.updated[0].Status)
	}
	if fx.subs.agency.SubscriptionActive {
		t.Fatal("canceled subscription must clear the agency flag")
	}
}

func TestProcessInvoiceEventFetchesSubscription(t *testing.T) {
	fx := newWebhookFixture(t)
	agencyID := fx.subs.agency.ID
	fx.subs.agency.SubscriptionActive = true
	fx.subs.existing = &models.Subscription{
		ID:                   uuid.New(),
		AgencyID:             agencyID,
		StripeSubscriptionID: "sub_test",
		Status:               enums.SubscriptionStatusActive,
	}
	remote := activeStripeSubscription(agencyID)
	remote.Status = stripe.SubscriptionStatusPastDue
	fx.stripe.getResp = remote

	invoice := map[string]any{"subscription": "sub_test"}
	raw, _ := json.Marshal(invoice)
	event := &stripe.Event{
		ID:   "evt_3",
		Type: stripe.EventTypeInvoicePaymentFailed,
		Data: &stripe.EventData{
			Raw:    raw,
			Object: map[string]any{"subscription": "sub_test"},
		},
	}

	if err := fx.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}
	if fx.subs.updated[0].Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due got %s", fx.subs.updated[0].Status)
	}
	if fx.subs.agency.SubscriptionActive {
		t.Fatal("past_due subscription must clear the agency flag")
	}
}

func TestProcessDuplicateEventIsIgnored(t *testing.T) {
	fx := newWebhookFixture(t)
	agencyID := fx.subs.agency.ID

	event := subscriptionEvent(t, "evt_dup", stripe.EventTypeCustomerSubscriptionCreated, activeStripeSubscription(agencyID))
	if err := fx.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := fx.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("replay must be acknowledged: %v", err)
	}
	if len(fx.subs.created) != 1 {
		t.Fatalf("replay must not create a second row, got %d", len(fx.subs.created))
	}
}

func TestProcessDBUniqueIndexStopsReplayWhenGuardDown(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.store.setErr = errors.New("redis down")
	fx.events.createErr = fmt.Errorf("duplicate key value violates unique constraint %q", eventIDIndex)

	event := subscriptionEvent(t, "evt_replay", stripe.EventTypeCustomerSubscriptionCreated, activeStripeSubscription(fx.subs.agency.ID))
	if err := fx.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("replay must be acknowledged: %v", err)
	}
	if len(fx.subs.created) != 0 {
		t.Fatal("replay must not touch subscription state")
	}
	if len(fx.notify.deliveries) != 0 {
		t.Fatal("replay must not notify")
	}
}

func TestProcessReleasesGuardOnFailure(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.events.createErr = errors.New("db unavailable")

	event := subscriptionEvent(t, "evt_fail", stripe.EventTypeCustomerSubscriptionCreated, activeStripeSubscription(fx.subs.agency.ID))
	if err := fx.svc.Process(context.Background(), event); err == nil {
		t.Fatal("expected processing error")
	}
	if _, exists := fx.store.keys[fx.store.IdempotencyKey("stripe-webhook", "evt_fail")]; exists {
		t.Fatal("failed event must release its idempotency key for retry")
	}
}
