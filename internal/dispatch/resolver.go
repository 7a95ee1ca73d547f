package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/funlifew/push-notify-api/internal/models"
	"github.com/funlifew/push-notify-api/internal/repository"
)

// ErrTargetGone marks a resolution failure that cannot succeed on retry: the
// notification points at a subscription that no longer exists. The dispatcher
// burns the remaining retry budget instead of re-attempting.
var ErrTargetGone = errors.New("delivery target no longer exists")

// Resolver expands a scheduled notification's recipient selector into
// concrete push targets and resolves its content into a deliverable payload.
type Resolver struct {
	subscriptions repository.SubscriptionRepository
	topics        repository.TopicRepository
	templates     repository.TemplateRepository
}

func NewResolver(
	subscriptions repository.SubscriptionRepository,
	topics repository.TopicRepository,
	templates repository.TemplateRepository,
) *Resolver {
	return &Resolver{
		subscriptions: subscriptions,
		topics:        topics,
		templates:     templates,
	}
}

// Resolution is the dispatcher's delivery work order: who to push to, what
// to push, and the attribution recorded on ledger rows.
type Resolution struct {
	Targets    []models.PushTarget
	Payload    models.Payload
	TopicID    *uuid.UUID
	TemplateID *uuid.UUID
}

// Resolve expands the selector and content of one notification. An empty
// target list is a defined outcome, not an error; the dispatcher reports it
// as a zero-success delivery.
func (r *Resolver) Resolve(ctx context.Context, n models.ScheduledNotification) (Resolution, error) {
	var res Resolution

	if n.Content.Kind == models.ContentTemplate {
		tpl, err := r.templates.GetByID(ctx, n.Content.TemplateID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return Resolution{}, fmt.Errorf("message template %s not found", n.Content.TemplateID)
			}
			return Resolution{}, fmt.Errorf("resolve template: %w", err)
		}
		payload, err := n.Content.Resolve(&tpl)
		if err != nil {
			return Resolution{}, err
		}
		res.Payload = payload
		id := tpl.ID
		res.TemplateID = &id
	} else {
		payload, err := n.Content.Resolve(nil)
		if err != nil {
			return Resolution{}, err
		}
		res.Payload = payload
	}

	switch n.Recipient.Kind {
	case models.RecipientSubscription:
		sub, err := r.subscriptions.GetByID(ctx, n.Recipient.SubscriptionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return Resolution{}, fmt.Errorf("subscription %s: %w", n.Recipient.SubscriptionID, ErrTargetGone)
			}
			return Resolution{}, fmt.Errorf("resolve subscription: %w", err)
		}
		res.Targets = []models.PushTarget{sub.Target()}

	case models.RecipientTopic:
		topic, err := r.topics.GetByID(ctx, n.Recipient.TopicID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return Resolution{}, fmt.Errorf("topic %s not found", n.Recipient.TopicID)
			}
			return Resolution{}, fmt.Errorf("resolve topic: %w", err)
		}
		id := topic.ID
		res.TopicID = &id

		subs, err := r.subscriptions.ListByTopic(ctx, topic.ID)
		if err != nil {
			return Resolution{}, fmt.Errorf("list topic subscriptions: %w", err)
		}
		res.Targets = targetsOf(subs)

	case models.RecipientAll:
		subs, err := r.subscriptions.List(ctx)
		if err != nil {
			return Resolution{}, fmt.Errorf("list subscriptions: %w", err)
		}
		res.Targets = targetsOf(subs)

	default:
		return Resolution{}, fmt.Errorf("unknown recipient kind %q", n.Recipient.Kind)
	}

	return res, nil
}

func targetsOf(subs []models.Subscription) []models.PushTarget {
	targets := make([]models.PushTarget, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub.Target())
	}
	return targets
}
