package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	errMissingTemplateID   = errors.New("template content requires a template id")
	errMissingInlineFields = errors.New("inline content requires both title and body")
	errUnknownContentKind  = errors.New("unknown content kind")
)

type ScheduleStatus string

const (
	StatusPending    ScheduleStatus = "pending"
	StatusProcessing ScheduleStatus = "processing"
	StatusSent       ScheduleStatus = "sent"
	StatusFailed     ScheduleStatus = "failed"
)

// RetryLimit caps delivery attempts per scheduled notification. A row whose
// attempts reach this limit is no longer selected by the due scan and stays
// failed until an operator cancels or force-sends it.
const RetryLimit = 3

// ScheduledNotification is a notification queued for future (or immediate)
// dispatch. Only the dispatch pipeline mutates status, attempts, error and
// sent_at once the row exists.
type ScheduledNotification struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Recipient   Recipient      `json:"recipient"`
	Content     Content        `json:"content"`
	ScheduledAt time.Time      `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	Status      ScheduleStatus `json:"status" db:"status"`
	Error       string         `json:"error,omitempty" db:"error"`
	Attempts    int            `json:"attempts" db:"attempts"`
	CreatedBy   *uuid.UUID     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Cancelable reports whether an operator may delete the row. A claimed row is
// in flight and a sent row is history; neither may be canceled.
func (n ScheduledNotification) Cancelable() bool {
	return n.Status == StatusPending || n.Status == StatusFailed
}

// ScheduleRequest is the strongly-typed boundary for creating a scheduled
// notification. SendAt nil means "dispatch immediately".
type ScheduleRequest struct {
	Recipient Recipient
	Content   Content
	SendAt    *time.Time
	CreatedBy *uuid.UUID
}

// Validate checks both tagged unions.
func (r ScheduleRequest) Validate() error {
	if err := r.Recipient.Validate(); err != nil {
		return err
	}
	switch r.Content.Kind {
	case ContentTemplate:
		if r.Content.TemplateID == uuid.Nil {
			return errMissingTemplateID
		}
	case ContentInline:
		if r.Content.Inline.Title == "" || r.Content.Inline.Body == "" {
			return errMissingInlineFields
		}
	default:
		return errUnknownContentKind
	}
	return nil
}

// ScheduledAtOr resolves the request's send time, defaulting to now for
// immediate dispatch.
func (r ScheduleRequest) ScheduledAtOr(now time.Time) time.Time {
	if r.SendAt == nil {
		return now
	}
	return *r.SendAt
}
