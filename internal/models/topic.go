package models

import (
	"time"

	"github.com/google/uuid"
)

// Topic is a named group of subscriptions. Membership is a set with no
// ordering semantics.
type Topic struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
