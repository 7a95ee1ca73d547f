package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageTemplate is reusable notification content. Scheduled notifications
// and ledger rows reference templates by id, never embed them.
type MessageTemplate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	URL       string    `json:"url,omitempty" db:"url"`
	IconPath  string    `json:"icon_path,omitempty" db:"icon_path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
