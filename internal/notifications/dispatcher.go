package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
)

// Delivery is a single notification to fan out to one recipient.
type Delivery struct {
	RecipientID uuid.UUID
	AgencyID    uuid.UUID
	Type        enums.NotificationType
	Title       string
	Message     string
	Link        *string
}

// Dispatcher fans a notification out to its channels. Delivery is
// best-effort and at-most-once: the persisted row is the source of truth,
// the push/email channels never roll anything back.
type Dispatcher interface {
	Deliver(ctx context.Context, delivery Delivery)
}

type creatorRepo interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

type dispatcher struct {
	repo creatorRepo
	pub  publisher
	logg *logger.Logger
}

// PushEvent is the pub/sub payload the notification worker consumes.
type PushEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	RecipientID    uuid.UUID              `json:"recipient_id"`
	AgencyID       uuid.UUID              `json:"agency_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Link           *string                `json:"link,omitempty"`
}

// NewDispatcher wires the notification fan-out. The publisher may be nil
// when the push channel is disabled (tests, local runs).
func NewDispatcher(repo creatorRepo, pub publisher, logg *logger.Logger) (Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &dispatcher{repo: repo, pub: pub, logg: logg}, nil
}

func (d *dispatcher) Deliver(ctx context.Context, delivery Delivery) {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"recipient_id":      delivery.RecipientID.String(),
		"notification_type": string(delivery.Type),
	})
	if delivery.RecipientID == uuid.Nil {
		d.logg.Warn(logCtx, "dropping notification without recipient")
		return
	}

	notification := &models.Notification{
		RecipientID: delivery.RecipientID,
		AgencyID:    delivery.AgencyID,
		Type:        delivery.Type,
		Title:       delivery.Title,
		Message:     delivery.Message,
		Link:        delivery.Link,
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		d.logg.Error(logCtx, "persist notification failed", err)
		return
	}

	if d.pub == nil {
		return
	}
	event := PushEvent{
		NotificationID: notification.ID,
		RecipientID:    delivery.RecipientID,
		AgencyID:       delivery.AgencyID,
		Type:           delivery.Type,
		Title:          delivery.Title,
		Message:        delivery.Message,
		Link:           delivery.Link,
	}
	data, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(logCtx, "encode push event failed", err)
		return
	}
	result := d.pub.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type":      string(delivery.Type),
			"notification_id": notification.ID.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		d.logg.Error(logCtx, "publish notification failed", err)
	}
}

// ShiftLink builds the client deep link for a shift.
func ShiftLink(shiftID uuid.UUID) *string {
	link := fmt.Sprintf("/shifts/%s", shiftID)
	return &link
}

// AssignmentLink builds the client deep link for an assignment.
func AssignmentLink(assignmentID uuid.UUID) *string {
	link := fmt.Sprintf("/assignments/%s", assignmentID)
	return &link
}

// SubscriptionLink points at the agency billing page.
func SubscriptionLink() *string {
	link := "/settings/subscription"
	return &link
}
