package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

type SubscriptionRepository interface {
	Create(ctx context.Context, params CreateSubscriptionParams) (models.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Subscription, error)
	GetByEndpoint(ctx context.Context, endpoint string) (models.Subscription, error)
	List(ctx context.Context) ([]models.Subscription, error)
	ListByTopic(ctx context.Context, topicID uuid.UUID) ([]models.Subscription, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateSubscriptionParams struct {
	UserID    *uuid.UUID
	Endpoint  string
	AuthKey   string
	P256dhKey string
	Device    string
	OS        string
	IPAddress string
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, endpoint, auth_key, p256dh_key, device, os, ip_address, last_used_at, created_at`

func (r *subscriptionRepository) Create(ctx context.Context, params CreateSubscriptionParams) (models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, endpoint, auth_key, p256dh_key, device, os, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + subscriptionColumns

	row := r.db.QueryRowContext(ctx, query,
		nullUUID(params.UserID), params.Endpoint, params.AuthKey, params.P256dhKey,
		params.Device, params.OS, params.IPAddress,
	)
	return scanSubscription(row)
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, ErrNotFound
	}
	return sub, err
}

func (r *subscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE endpoint = $1`

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, endpoint))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, ErrNotFound
	}
	return sub, err
}

func (r *subscriptionRepository) List(ctx context.Context) ([]models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (r *subscriptionRepository) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]models.Subscription, error) {
	query := `
		SELECT s.id, s.user_id, s.endpoint, s.auth_key, s.p256dh_key, s.device, s.os, s.ip_address, s.last_used_at, s.created_at
		FROM subscriptions s
		JOIN topic_subscriptions ts ON ts.subscription_id = s.id
		WHERE ts.topic_id = $1`

	rows, err := r.db.QueryContext(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by topic: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (r *subscriptionRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE subscriptions SET last_used_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touch subscription: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func scanSubscription(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Subscription, error) {
	var (
		sub    models.Subscription
		userID sql.NullString
	)

	if err := scanner.Scan(
		&sub.ID,
		&userID,
		&sub.Endpoint,
		&sub.AuthKey,
		&sub.P256dhKey,
		&sub.Device,
		&sub.OS,
		&sub.IPAddress,
		&sub.LastUsedAt,
		&sub.CreatedAt,
	); err != nil {
		return models.Subscription{}, err
	}

	if userID.Valid {
		if parsed, err := uuid.Parse(userID.String); err == nil {
			sub.UserID = &parsed
		}
	}

	return sub, nil
}
