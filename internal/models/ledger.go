package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryLedgerEntry records one delivery attempt to one subscription.
// Content is snapshotted so history survives template edits. Rows are
// append-only: created during reconciliation, never updated or deleted.
type DeliveryLedgerEntry struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SubscriptionID uuid.UUID  `json:"subscription_id" db:"subscription_id"`
	TopicID        *uuid.UUID `json:"topic_id,omitempty" db:"topic_id"`
	TemplateID     *uuid.UUID `json:"template_id,omitempty" db:"template_id"`
	Title          string     `json:"title" db:"title"`
	Body           string     `json:"body" db:"body"`
	URL            string     `json:"url,omitempty" db:"url"`
	IconPath       string     `json:"icon_path,omitempty" db:"icon_path"`
	Success        bool       `json:"success" db:"success"`
	Error          string     `json:"error,omitempty" db:"error"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
