package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/gateway"
	"github.com/funlifew/push-notify-api/internal/models"
	"github.com/funlifew/push-notify-api/internal/repository"
)

type fakeSubscriptionRepo struct {
	subs    map[uuid.UUID]models.Subscription
	byTopic map[uuid.UUID][]uuid.UUID
	listErr error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		subs:    make(map[uuid.UUID]models.Subscription),
		byTopic: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeSubscriptionRepo) add(sub models.Subscription, topicIDs ...uuid.UUID) {
	f.subs[sub.ID] = sub
	for _, tid := range topicIDs {
		f.byTopic[tid] = append(f.byTopic[tid], sub.ID)
	}
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, params repository.CreateSubscriptionParams) (models.Subscription, error) {
	sub := models.Subscription{ID: uuid.New(), Endpoint: params.Endpoint, AuthKey: params.AuthKey, P256dhKey: params.P256dhKey}
	f.subs[sub.ID] = sub
	return sub, nil
}

func (f *fakeSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Subscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return models.Subscription{}, repository.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSubscriptionRepo) GetByEndpoint(ctx context.Context, endpoint string) (models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.Endpoint == endpoint {
			return sub, nil
		}
	}
	return models.Subscription{}, repository.ErrNotFound
}

func (f *fakeSubscriptionRepo) List(ctx context.Context) ([]models.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var subs []models.Subscription
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	return subs, nil
}

func (f *fakeSubscriptionRepo) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	for _, id := range f.byTopic[topicID] {
		subs = append(subs, f.subs[id])
	}
	return subs, nil
}

func (f *fakeSubscriptionRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeSubscriptionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.subs, id)
	return nil
}

type fakeTopicRepo struct {
	topics map[uuid.UUID]models.Topic
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: make(map[uuid.UUID]models.Topic)}
}

func (f *fakeTopicRepo) Create(ctx context.Context, name, slug string) (models.Topic, error) {
	t := models.Topic{ID: uuid.New(), Name: name, Slug: slug}
	f.topics[t.ID] = t
	return t, nil
}

func (f *fakeTopicRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Topic, error) {
	t, ok := f.topics[id]
	if !ok {
		return models.Topic{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTopicRepo) GetBySlug(ctx context.Context, slug string) (models.Topic, error) {
	for _, t := range f.topics {
		if t.Slug == slug {
			return t, nil
		}
	}
	return models.Topic{}, repository.ErrNotFound
}

func (f *fakeTopicRepo) List(ctx context.Context) ([]models.Topic, error) { return nil, nil }

func (f *fakeTopicRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.topics, id)
	return nil
}

func (f *fakeTopicRepo) AddSubscription(ctx context.Context, topicID, subscriptionID uuid.UUID) error {
	return nil
}

func (f *fakeTopicRepo) RemoveSubscription(ctx context.Context, topicID, subscriptionID uuid.UUID) error {
	return nil
}

type fakeTemplateRepo struct {
	templates map[uuid.UUID]models.MessageTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[uuid.UUID]models.MessageTemplate)}
}

func (f *fakeTemplateRepo) Create(ctx context.Context, params repository.TemplateParams) (models.MessageTemplate, error) {
	tpl := models.MessageTemplate{ID: uuid.New(), Title: params.Title, Body: params.Body, URL: params.URL, IconPath: params.IconPath}
	f.templates[tpl.ID] = tpl
	return tpl, nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (models.MessageTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return models.MessageTemplate{}, repository.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeTemplateRepo) List(ctx context.Context) ([]models.MessageTemplate, error) {
	return nil, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, id uuid.UUID, params repository.TemplateParams) (models.MessageTemplate, error) {
	return models.MessageTemplate{}, repository.ErrNotFound
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeScheduleRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.ScheduledNotification
}

func newFakeScheduleRepo(rows ...models.ScheduledNotification) *fakeScheduleRepo {
	f := &fakeScheduleRepo{rows: make(map[uuid.UUID]models.ScheduledNotification)}
	for _, n := range rows {
		f.rows[n.ID] = n
	}
	return f
}

func (f *fakeScheduleRepo) Create(ctx context.Context, req models.ScheduleRequest, scheduledAt time.Time) (models.ScheduledNotification, error) {
	n := models.ScheduledNotification{
		ID:          uuid.New(),
		Recipient:   req.Recipient,
		Content:     req.Content,
		ScheduledAt: scheduledAt,
		Status:      models.StatusPending,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[n.ID] = n
	return n, nil
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok {
		return models.ScheduledNotification{}, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeScheduleRepo) List(ctx context.Context) ([]models.ScheduledNotification, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.ScheduledNotification
	for _, n := range f.rows {
		eligible := n.Status == models.StatusPending || n.Status == models.StatusFailed
		if eligible && !n.ScheduledAt.After(now) && n.Attempts < models.RetryLimit {
			due = append(due, n)
		}
	}
	return due, nil
}

func (f *fakeScheduleRepo) Claim(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok {
		return models.ScheduledNotification{}, repository.ErrNotFound
	}
	if n.Status != models.StatusPending && n.Status != models.StatusFailed {
		return models.ScheduledNotification{}, repository.ErrClaimConflict
	}
	n.Status = models.StatusProcessing
	n.Attempts++
	f.rows[id] = n
	return n, nil
}

func (f *fakeScheduleRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok || n.Status != models.StatusProcessing {
		return repository.ErrClaimConflict
	}
	n.Status = models.StatusSent
	n.SentAt = &at
	n.Error = ""
	f.rows[id] = n
	return nil
}

func (f *fakeScheduleRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Status = models.StatusFailed
	n.Error = cause
	f.rows[id] = n
	return nil
}

func (f *fakeScheduleRepo) ExhaustAttempts(ctx context.Context, id uuid.UUID, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Status = models.StatusFailed
	n.Error = cause
	if n.Attempts < models.RetryLimit {
		n.Attempts = models.RetryLimit
	}
	f.rows[id] = n
	return nil
}

func (f *fakeScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !n.Cancelable() {
		return repository.ErrNotCancelable
	}
	delete(f.rows, id)
	return nil
}

type fakeGateway struct {
	singleErr   error
	groupResult gateway.GroupResult
	groupErr    error

	singleCalls []models.PushTarget
	groupCalls  [][]models.PushTarget
}

func (f *fakeGateway) SendSingle(ctx context.Context, target models.PushTarget, payload models.Payload) error {
	f.singleCalls = append(f.singleCalls, target)
	return f.singleErr
}

func (f *fakeGateway) SendGroup(ctx context.Context, targets []models.PushTarget, payload models.Payload) (gateway.GroupResult, error) {
	f.groupCalls = append(f.groupCalls, targets)
	return f.groupResult, f.groupErr
}

type fakeLedgerRepo struct {
	batches   [][]models.DeliveryLedgerEntry
	insertErr error
}

func (f *fakeLedgerRepo) InsertBatch(ctx context.Context, entries []models.DeliveryLedgerEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.batches = append(f.batches, entries)
	return nil
}

func (f *fakeLedgerRepo) ListRecent(ctx context.Context, limit int) ([]models.DeliveryLedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]models.DeliveryLedgerEntry, error) {
	return nil, nil
}
