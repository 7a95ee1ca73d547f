package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/models"
)

var (
	// ErrClaimConflict means the row was not in a claimable state: another
	// scan already holds it, or it has already been sent.
	ErrClaimConflict = errors.New("notification is not claimable")

	// ErrNotCancelable means the row is processing or sent and may not be
	// deleted by an operator.
	ErrNotCancelable = errors.New("notification cannot be canceled in its current state")
)

type ScheduleRepository interface {
	Create(ctx context.Context, req models.ScheduleRequest, scheduledAt time.Time) (models.ScheduledNotification, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error)
	List(ctx context.Context) ([]models.ScheduledNotification, error)
	ListDue(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error)
	Claim(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
	ExhaustAttempts(ctx context.Context, id uuid.UUID, cause string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, subscription_id, topic_id, send_to_all, template_id, title, body, url, icon_path,
		scheduled_at, sent_at, status, error, attempts, created_by, created_at, updated_at`

func (r *scheduleRepository) Create(ctx context.Context, req models.ScheduleRequest, scheduledAt time.Time) (models.ScheduledNotification, error) {
	if err := req.Validate(); err != nil {
		return models.ScheduledNotification{}, err
	}

	query := `
		INSERT INTO scheduled_notifications
			(subscription_id, topic_id, send_to_all, template_id, title, body, url, icon_path, scheduled_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + scheduleColumns

	var subscriptionID, topicID, templateID interface{}
	sendToAll := false
	switch req.Recipient.Kind {
	case models.RecipientSubscription:
		subscriptionID = req.Recipient.SubscriptionID
	case models.RecipientTopic:
		topicID = req.Recipient.TopicID
	case models.RecipientAll:
		sendToAll = true
	}

	var title, body, url, icon interface{}
	if req.Content.Kind == models.ContentTemplate {
		templateID = req.Content.TemplateID
	} else {
		title = req.Content.Inline.Title
		body = req.Content.Inline.Body
		url = nullIfEmpty(req.Content.Inline.URL)
		icon = nullIfEmpty(req.Content.Inline.IconPath)
	}

	row := r.db.QueryRowContext(ctx, query,
		subscriptionID, topicID, sendToAll, templateID, title, body, url, icon,
		scheduledAt, nullUUID(req.CreatedBy),
	)
	return scanSchedule(row)
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_notifications WHERE id = $1`

	n, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduledNotification{}, ErrNotFound
	}
	return n, err
}

func (r *scheduleRepository) List(ctx context.Context) ([]models.ScheduledNotification, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_notifications ORDER BY scheduled_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scheduled notifications: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// ListDue selects every notification whose time has arrived and whose retry
// budget remains. Failed rows stay eligible until attempts reach the limit;
// processing and sent rows are never returned.
func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduled_notifications
		WHERE status IN ('pending', 'failed')
		  AND scheduled_at <= $1
		  AND attempts < $2`

	rows, err := r.db.QueryContext(ctx, query, now, models.RetryLimit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// Claim atomically transitions a pending or failed row to processing and
// increments attempts. The conditional update is the critical-section
// primitive: a row claimed by one scan is invisible to a concurrent claim.
// The attempt budget is not checked here so an operator force-send can still
// claim an exhausted row.
func (r *scheduleRepository) Claim(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error) {
	query := `
		UPDATE scheduled_notifications
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')
		RETURNING ` + scheduleColumns

	n, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrNotFound) {
			return models.ScheduledNotification{}, ErrNotFound
		}
		return models.ScheduledNotification{}, ErrClaimConflict
	}
	return n, err
}

func (r *scheduleRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE scheduled_notifications
		SET status = 'sent', sent_at = $2, error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrClaimConflict
	}
	return nil
}

func (r *scheduleRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	query := `
		UPDATE scheduled_notifications
		SET status = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, cause)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ExhaustAttempts fails a row and burns its remaining retry budget, for
// failures that cannot succeed on retry (the target no longer exists).
func (r *scheduleRepository) ExhaustAttempts(ctx context.Context, id uuid.UUID, cause string) error {
	query := `
		UPDATE scheduled_notifications
		SET status = 'failed', error = $2, attempts = GREATEST(attempts, $3), updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, cause, models.RetryLimit)
	if err != nil {
		return fmt.Errorf("exhaust attempts: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete cancels a notification. Only unclaimed rows (pending or failed) may
// be deleted; a processing row is in flight and a sent row is history.
func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM scheduled_notifications WHERE id = $1 AND status IN ('pending', 'failed')`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete scheduled notification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrNotCancelable
	}
	return nil
}

func collectSchedules(rows *sql.Rows) ([]models.ScheduledNotification, error) {
	var notifications []models.ScheduledNotification
	for rows.Next() {
		n, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func scanSchedule(scanner interface {
	Scan(dest ...interface{}) error
}) (models.ScheduledNotification, error) {
	var (
		n              models.ScheduledNotification
		subscriptionID sql.NullString
		topicID        sql.NullString
		sendToAll      bool
		templateID     sql.NullString
		title          sql.NullString
		body           sql.NullString
		url            sql.NullString
		icon           sql.NullString
		sentAt         sql.NullTime
		cause          sql.NullString
		createdBy      sql.NullString
	)

	if err := scanner.Scan(
		&n.ID,
		&subscriptionID,
		&topicID,
		&sendToAll,
		&templateID,
		&title,
		&body,
		&url,
		&icon,
		&n.ScheduledAt,
		&sentAt,
		&n.Status,
		&cause,
		&n.Attempts,
		&createdBy,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return models.ScheduledNotification{}, err
	}

	recipient, err := models.NewRecipient(parseNullUUID(subscriptionID), parseNullUUID(topicID), sendToAll)
	if err != nil {
		return models.ScheduledNotification{}, fmt.Errorf("row %s: %w", n.ID, err)
	}
	n.Recipient = recipient

	inline := models.Payload{Title: title.String, Body: body.String, URL: url.String, IconPath: icon.String}
	if tid := parseNullUUID(templateID); tid != nil {
		n.Content = models.TemplateContent(*tid)
		// Leftover inline url/icon serve as fallbacks during resolution.
		n.Content.Inline = models.Payload{URL: inline.URL, IconPath: inline.IconPath}
	} else {
		n.Content = models.InlineContent(inline)
	}

	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	n.Error = cause.String
	n.CreatedBy = parseNullUUID(createdBy)

	return n, nil
}
