package models

import (
	"time"

	"github.com/quantprep/gatekeeper/pkg/types"

	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookEventStatusReceived     WebhookEventStatus = "received"
	WebhookEventStatusHandled      WebhookEventStatus = "handled"
	WebhookEventStatusHandleFailed WebhookEventStatus = "handle_failed"
	WebhookEventStatusSkipped      WebhookEventStatus = "skipped"
	WebhookEventStatusDuplicate    WebhookEventStatus = "duplicate"
)

// WebhookEvent records every webhook delivery. The (provider, event_id)
// unique index doubles as the dedupe fence: a second delivery of the same
// event id is acknowledged without reprocessing.
type WebhookEvent struct {
	ID        string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider  types.PaymentProvider `gorm:"column:provider;type:varchar(32);not null;uniqueIndex:unique_provider_event_id,priority:1" json:"provider"`
	EventID   string                `gorm:"column:event_id;type:varchar(128);not null;uniqueIndex:unique_provider_event_id,priority:2" json:"event_id"`
	EventType string                `gorm:"column:event_type;type:varchar(128);not null" json:"event_type"`
	UserID    *string               `gorm:"column:user_id;type:varchar(64);index" json:"user_id"`
	TraceID   string                `gorm:"column:trace_id;type:varchar(64)" json:"trace_id"`
	Payload   datatypes.JSON        `gorm:"column:payload;type:jsonb;default:'{}'" json:"payload"`
	Result    *datatypes.JSON       `gorm:"column:result;type:jsonb;default:null" json:"result"`
	Status    WebhookEventStatus    `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_event"
}
