package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records processed billing provider events. The provider event
// id is unique so replays are rejected at the database even if the cache
// layer misses.
type WebhookEvent struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider    string          `gorm:"column:provider;not null;default:'stripe'"`
	EventID     string          `gorm:"column:event_id;not null;uniqueIndex"`
	EventType   string          `gorm:"column:event_type;not null"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb"`
	ProcessedAt *time.Time      `gorm:"column:processed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
