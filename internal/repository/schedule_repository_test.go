package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funlifew/push-notify-api/internal/models"
)

var scheduleRowColumns = []string{
	"id", "subscription_id", "topic_id", "send_to_all", "template_id",
	"title", "body", "url", "icon_path",
	"scheduled_at", "sent_at", "status", "error", "attempts",
	"created_by", "created_at", "updated_at",
}

type scheduleRowOpts struct {
	id             uuid.UUID
	subscriptionID interface{}
	topicID        interface{}
	sendToAll      bool
	templateID     interface{}
	title          interface{}
	body           interface{}
	status         string
	attempts       int
}

func scheduleRow(opts scheduleRowOpts) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(scheduleRowColumns).AddRow(
		opts.id, opts.subscriptionID, opts.topicID, opts.sendToAll, opts.templateID,
		opts.title, opts.body, nil, nil,
		now, nil, opts.status, nil, opts.attempts,
		nil, now, now,
	)
}

func newScheduleRepo(t *testing.T) (ScheduleRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewScheduleRepository(db), mock
}

func TestScheduleCreateRejectsInvalidRequest(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	// Both a subscription selector and inline content are missing.
	req := models.ScheduleRequest{}
	_, err := repo.Create(context.Background(), req, time.Now())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleCreateMapsUnionsToColumns(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	subscriptionID := uuid.New()
	scheduledAt := time.Now().Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scheduled_notifications")).
		WithArgs(
			subscriptionID, nil, false, nil,
			"Release", "v2 is out", nil, nil,
			scheduledAt, nil,
		).
		WillReturnRows(scheduleRow(scheduleRowOpts{
			id:             id,
			subscriptionID: subscriptionID.String(),
			title:          "Release",
			body:           "v2 is out",
			status:         "pending",
		}))

	req := models.ScheduleRequest{
		Recipient: models.SubscriptionRecipient(subscriptionID),
		Content:   models.InlineContent(models.Payload{Title: "Release", Body: "v2 is out"}),
	}
	n, err := repo.Create(context.Background(), req, scheduledAt)
	require.NoError(t, err)

	assert.Equal(t, id, n.ID)
	assert.Equal(t, models.RecipientSubscription, n.Recipient.Kind)
	assert.Equal(t, subscriptionID, n.Recipient.SubscriptionID)
	assert.Equal(t, models.ContentInline, n.Content.Kind)
	assert.Equal(t, models.StatusPending, n.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDueFiltersByStatusTimeAndBudget(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	now := time.Now()
	topicID := uuid.New()
	rows := scheduleRow(scheduleRowOpts{
		id:       uuid.New(),
		topicID:  topicID.String(),
		title:    "t",
		body:     "b",
		status:   "failed",
		attempts: 2,
	})

	mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'failed')")).
		WithArgs(now, models.RetryLimit).
		WillReturnRows(rows)

	due, err := repo.ListDue(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, due, 1)
	assert.Equal(t, models.RecipientTopic, due[0].Recipient.Kind)
	assert.Equal(t, topicID, due[0].Recipient.TopicID)
	assert.Equal(t, 2, due[0].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimTransitionsAndIncrementsAttempts(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	subscriptionID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'processing', attempts = attempts + 1")).
		WithArgs(id).
		WillReturnRows(scheduleRow(scheduleRowOpts{
			id:             id,
			subscriptionID: subscriptionID.String(),
			title:          "t",
			body:           "b",
			status:         "processing",
			attempts:       1,
		}))

	n, err := repo.Claim(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimConflictWhenRowAlreadyClaimed(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'processing'")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications WHERE id =")).
		WithArgs(id).
		WillReturnRows(scheduleRow(scheduleRowOpts{
			id:        id,
			sendToAll: true,
			title:     "t",
			body:      "b",
			status:    "processing",
			attempts:  1,
		}))

	_, err := repo.Claim(context.Background(), id)
	assert.ErrorIs(t, err, ErrClaimConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMissingRowIsNotFound(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'processing'")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications WHERE id =")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Claim(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSentRequiresProcessingState(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'sent'")).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkSent(context.Background(), id, at))

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'sent'")).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkSent(context.Background(), id, at), ErrClaimConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExhaustAttemptsBurnsBudget(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("attempts = GREATEST(attempts, $3)")).
		WithArgs(id, "subscription gone", models.RetryLimit).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ExhaustAttempts(context.Background(), id, "subscription gone"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOnlyCancelableRows(t *testing.T) {
	repo, mock := newScheduleRepo(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_notifications")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id))

	// A sent row survives the conditional delete and reports a conflict.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_notifications")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications WHERE id =")).
		WithArgs(id).
		WillReturnRows(scheduleRow(scheduleRowOpts{
			id:        id,
			sendToAll: true,
			title:     "t",
			body:      "b",
			status:    "sent",
			attempts:  1,
		}))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotCancelable)

	// A missing row is not found.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_notifications")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_notifications WHERE id =")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
