package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/models"
)

type TopicRepository interface {
	Create(ctx context.Context, name, slug string) (models.Topic, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Topic, error)
	GetBySlug(ctx context.Context, slug string) (models.Topic, error)
	List(ctx context.Context) ([]models.Topic, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddSubscription(ctx context.Context, topicID, subscriptionID uuid.UUID) error
	RemoveSubscription(ctx context.Context, topicID, subscriptionID uuid.UUID) error
}

type topicRepository struct {
	db *sql.DB
}

func NewTopicRepository(db *sql.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) Create(ctx context.Context, name, slug string) (models.Topic, error) {
	query := `
		INSERT INTO topics (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug, created_at`

	var t models.Topic
	err := r.db.QueryRowContext(ctx, query, name, slug).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if err != nil {
		return models.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	return t, nil
}

func (r *topicRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Topic, error) {
	query := `SELECT id, name, slug, created_at FROM topics WHERE id = $1`

	var t models.Topic
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Topic{}, ErrNotFound
	}
	if err != nil {
		return models.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return t, nil
}

func (r *topicRepository) GetBySlug(ctx context.Context, slug string) (models.Topic, error) {
	query := `SELECT id, name, slug, created_at FROM topics WHERE slug = $1`

	var t models.Topic
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Topic{}, ErrNotFound
	}
	if err != nil {
		return models.Topic{}, fmt.Errorf("get topic by slug: %w", err)
	}
	return t, nil
}

func (r *topicRepository) List(ctx context.Context) ([]models.Topic, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug, created_at FROM topics ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *topicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *topicRepository) AddSubscription(ctx context.Context, topicID, subscriptionID uuid.UUID) error {
	query := `
		INSERT INTO topic_subscriptions (topic_id, subscription_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, topicID, subscriptionID); err != nil {
		return fmt.Errorf("add topic subscription: %w", err)
	}
	return nil
}

func (r *topicRepository) RemoveSubscription(ctx context.Context, topicID, subscriptionID uuid.UUID) error {
	query := `DELETE FROM topic_subscriptions WHERE topic_id = $1 AND subscription_id = $2`

	res, err := r.db.ExecContext(ctx, query, topicID, subscriptionID)
	if err != nil {
		return fmt.Errorf("remove topic subscription: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
