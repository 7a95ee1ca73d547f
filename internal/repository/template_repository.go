package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/models"
)

type TemplateRepository interface {
	Create(ctx context.Context, params TemplateParams) (models.MessageTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.MessageTemplate, error)
	List(ctx context.Context) ([]models.MessageTemplate, error)
	Update(ctx context.Context, id uuid.UUID, params TemplateParams) (models.MessageTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TemplateParams struct {
	Title    string
	Body     string
	URL      string
	IconPath string
}

type templateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

const templateColumns = `id, title, body, url, icon_path, created_at`

func (r *templateRepository) Create(ctx context.Context, params TemplateParams) (models.MessageTemplate, error) {
	query := `
		INSERT INTO message_templates (title, body, url, icon_path)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + templateColumns

	row := r.db.QueryRowContext(ctx, query,
		params.Title, params.Body, nullIfEmpty(params.URL), nullIfEmpty(params.IconPath))
	return scanTemplate(row)
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (models.MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates WHERE id = $1`

	tpl, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageTemplate{}, ErrNotFound
	}
	return tpl, err
}

func (r *templateRepository) List(ctx context.Context) ([]models.MessageTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM message_templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.MessageTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) Update(ctx context.Context, id uuid.UUID, params TemplateParams) (models.MessageTemplate, error) {
	query := `
		UPDATE message_templates
		SET title = $2, body = $3, url = $4, icon_path = $5
		WHERE id = $1
		RETURNING ` + templateColumns

	row := r.db.QueryRowContext(ctx, query, id,
		params.Title, params.Body, nullIfEmpty(params.URL), nullIfEmpty(params.IconPath))
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageTemplate{}, ErrNotFound
	}
	return tpl, err
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTemplate(scanner interface {
	Scan(dest ...interface{}) error
}) (models.MessageTemplate, error) {
	var (
		tpl  models.MessageTemplate
		url  sql.NullString
		icon sql.NullString
	)

	if err := scanner.Scan(&tpl.ID, &tpl.Title, &tpl.Body, &url, &icon, &tpl.CreatedAt); err != nil {
		return models.MessageTemplate{}, err
	}

	tpl.URL = url.String
	tpl.IconPath = icon.String
	return tpl, nil
}
