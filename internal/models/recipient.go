package models

import (
	"fmt"

	"github.com/google/uuid"
)

type RecipientKind string

const (
	RecipientSubscription RecipientKind = "subscription"
	RecipientTopic        RecipientKind = "topic"
	RecipientAll          RecipientKind = "all"
)

// Recipient selects who a notification goes to: a single subscription, every
// member of a topic, or the whole subscriber population. Exactly one selector
// is set; NewRecipient enforces that at construction time.
type Recipient struct {
	Kind           RecipientKind `json:"kind"`
	SubscriptionID uuid.UUID     `json:"subscription_id,omitempty"`
	TopicID        uuid.UUID     `json:"topic_id,omitempty"`
}

// NewRecipient builds a Recipient from the nullable column shape. It fails
// unless exactly one of the three selectors is populated.
func NewRecipient(subscriptionID, topicID *uuid.UUID, sendToAll bool) (Recipient, error) {
	set := 0
	if subscriptionID != nil {
		set++
	}
	if topicID != nil {
		set++
	}
	if sendToAll {
		set++
	}
	if set != 1 {
		return Recipient{}, fmt.Errorf("exactly one of subscription_id, topic_id, send_to_all must be set, got %d", set)
	}

	switch {
	case subscriptionID != nil:
		return Recipient{Kind: RecipientSubscription, SubscriptionID: *subscriptionID}, nil
	case topicID != nil:
		return Recipient{Kind: RecipientTopic, TopicID: *topicID}, nil
	default:
		return Recipient{Kind: RecipientAll}, nil
	}
}

func SubscriptionRecipient(id uuid.UUID) Recipient {
	return Recipient{Kind: RecipientSubscription, SubscriptionID: id}
}

func TopicRecipient(id uuid.UUID) Recipient {
	return Recipient{Kind: RecipientTopic, TopicID: id}
}

func AllRecipient() Recipient {
	return Recipient{Kind: RecipientAll}
}

// Validate reports whether the recipient is one of the three well-formed
// variants with its id populated where the variant requires one.
func (r Recipient) Validate() error {
	switch r.Kind {
	case RecipientSubscription:
		if r.SubscriptionID == uuid.Nil {
			return fmt.Errorf("subscription recipient requires a subscription id")
		}
	case RecipientTopic:
		if r.TopicID == uuid.Nil {
			return fmt.Errorf("topic recipient requires a topic id")
		}
	case RecipientAll:
	default:
		return fmt.Errorf("unknown recipient kind %q", r.Kind)
	}
	return nil
}
