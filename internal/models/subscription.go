package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a browser push endpoint together with the keys the relay
// needs to deliver to it. Immutable once registered except LastUsedAt.
type Subscription struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Endpoint   string     `json:"endpoint" db:"endpoint"`
	AuthKey    string     `json:"auth_key" db:"auth_key"`
	P256dhKey  string     `json:"p256dh_key" db:"p256dh_key"`
	Device     string     `json:"device" db:"device"`
	OS         string     `json:"os" db:"os"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	LastUsedAt time.Time  `json:"last_used_at" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// PushTarget is the delivery credential triple handed to the gateway for one
// recipient, tagged with the subscription it came from so delivery outcomes
// can be written back to the ledger.
type PushTarget struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Endpoint       string    `json:"endpoint"`
	AuthKey        string    `json:"auth_key"`
	P256dhKey      string    `json:"p256dh_key"`
}

// Target returns the subscription's delivery credentials.
func (s Subscription) Target() PushTarget {
	return PushTarget{
		SubscriptionID: s.ID,
		Endpoint:       s.Endpoint,
		AuthKey:        s.AuthKey,
		P256dhKey:      s.P256dhKey,
	}
}
