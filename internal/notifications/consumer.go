package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
)

const (
	emailConsumerScope  = "notification-email"
	emailDedupRetention = 24 * time.Hour
)

type emailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type recipientLookup interface {
	FindEmailByUserID(ctx context.Context, userID uuid.UUID) (string, error)
}

type dedupStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer drains the notification subscription and emails each recipient.
// Email failures nack for redelivery; malformed messages are dropped.
type Consumer struct {
	subscription *pubsub.Subscriber
	recipients   recipientLookup
	email        emailSender
	dedup        dedupStore
	logg         *logger.Logger
}

// NewConsumer builds the notification email consumer.
func NewConsumer(subscription *pubsub.Subscriber, recipients recipientLookup, email emailSender, dedup dedupStore, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient lookup required")
	}
	if email == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if dedup == nil {
		return nil, fmt.Errorf("dedup store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		recipients:   recipients,
		email:        email,
		dedup:        dedup,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	var event PushEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode push event", err)
		return true
	}
	if event.NotificationID == uuid.Nil || event.RecipientID == uuid.Nil {
		c.logg.Warn(logCtx, "dropping push event without ids")
		return true
	}
	logCtx = c.logg.WithField(logCtx, "notification_id", event.NotificationID.String())

	key := c.dedup.IdempotencyKey(emailConsumerScope, event.NotificationID.String())
	fresh, err := c.dedup.SetNX(ctx, key, time.Now().UTC().Unix(), emailDedupRetention)
	if err != nil {
		c.logg.Error(logCtx, "dedup check failed", err)
		return false
	}
	if !fresh {
		c.logg.Info(logCtx, "notification already emailed")
		return true
	}

	to, err := c.recipients.FindEmailByUserID(ctx, event.RecipientID)
	if err != nil {
		c.logg.Error(logCtx, "recipient lookup failed", err)
		_ = c.dedup.Del(ctx, key)
		return false
	}

	body := event.Message
	if event.Link != nil && *event.Link != "" {
		body = fmt.Sprintf("%s\n\nView: %s", event.Message, *event.Link)
	}
	if err := c.email.Send(ctx, to, event.Title, body); err != nil {
		c.logg.Error(logCtx, "email send failed", err)
		_ = c.dedup.Del(ctx, key)
		return false
	}

	c.logg.Info(logCtx, "notification emailed")
	return true
}
