package model

import "time"

// WebhookEventRecord is the idempotency ledger for inbound webhook
// deliveries. The storefront delivers at least once and reuses the same
// webhook id across retries of one delivery, so a processed row means a
// retry can short-circuit to a no-op success response.
type WebhookEventRecord struct {
	WebhookID string `json:"webhook_id" gorm:"primarykey;type:varchar(255)"`
	Topic     string `json:"topic" gorm:"type:varchar(100);not null"`
	// Raw request body, kept for replay and debugging
	Payload      string    `json:"payload" gorm:"type:text"`
	Processed    bool      `json:"processed" gorm:"not null;default:false"`
	ErrorMessage *string   `json:"error_message" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name
func (WebhookEventRecord) TableName() string {
	return "webhook_events"
}
