package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/models"
)

type LedgerRepository interface {
	InsertBatch(ctx context.Context, entries []models.DeliveryLedgerEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.DeliveryLedgerEntry, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]models.DeliveryLedgerEntry, error)
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

const ledgerColumns = `id, subscription_id, topic_id, template_id, title, body, url, icon_path, success, error, created_at`

// InsertBatch writes all entries in one statement so a large reconciliation
// never leaves a partial ledger behind.
func (r *ledgerRepository) InsertBatch(ctx context.Context, entries []models.DeliveryLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO delivery_ledger (subscription_id, topic_id, template_id, title, body, url, icon_path, success, error) VALUES `)

	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)
		args = append(args,
			e.SubscriptionID,
			nullUUID(e.TopicID),
			nullUUID(e.TemplateID),
			e.Title,
			e.Body,
			nullIfEmpty(e.URL),
			nullIfEmpty(e.IconPath),
			e.Success,
			nullIfEmpty(e.Error),
		)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert ledger batch: %w", err)
	}
	return nil
}

func (r *ledgerRepository) ListRecent(ctx context.Context, limit int) ([]models.DeliveryLedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT ` + ledgerColumns + ` FROM delivery_ledger ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	return collectLedgerEntries(rows)
}

func (r *ledgerRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]models.DeliveryLedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT ` + ledgerColumns + `
		FROM delivery_ledger
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by subscription: %w", err)
	}
	defer rows.Close()

	return collectLedgerEntries(rows)
}

func collectLedgerEntries(rows *sql.Rows) ([]models.DeliveryLedgerEntry, error) {
	var entries []models.DeliveryLedgerEntry
	for rows.Next() {
		var (
			e          models.DeliveryLedgerEntry
			topicID    sql.NullString
			templateID sql.NullString
			url        sql.NullString
			icon       sql.NullString
			cause      sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&e.SubscriptionID,
			&topicID,
			&templateID,
			&e.Title,
			&e.Body,
			&url,
			&icon,
			&e.Success,
			&cause,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.TopicID = parseNullUUID(topicID)
		e.TemplateID = parseNullUUID(templateID)
		e.URL = url.String
		e.IconPath = icon.String
		e.Error = cause.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
