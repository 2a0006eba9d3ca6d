package domain

import (
	"fmt"
	"time"
)

// ChannelKind is one delivery medium for a notification.
type ChannelKind string

const (
	ChannelEmail ChannelKind = "email"
	ChannelSMS   ChannelKind = "sms"
	ChannelPush  ChannelKind = "push"
)

// AllChannelKinds is the fixed preference-selection order.
var AllChannelKinds = []ChannelKind{ChannelEmail, ChannelSMS, ChannelPush}

// ChannelStatus is the delivery state machine: pending -> sent | failed.
// A failed channel may be reset to pending for retry.
type ChannelStatus string

const (
	ChannelPending ChannelStatus = "pending"
	ChannelSent    ChannelStatus = "sent"
	ChannelFailed  ChannelStatus = "failed"
)

// NotificationVerb is the kind of interaction a notification describes.
type NotificationVerb string

const (
	VerbLike      NotificationVerb = "like"
	VerbComment   NotificationVerb = "comment"
	VerbFollow    NotificationVerb = "follow"
	VerbMention   NotificationVerb = "mention"
	VerbShare     NotificationVerb = "share"
	VerbReport    NotificationVerb = "report"
	VerbIssue     NotificationVerb = "issue"
	VerbResolved  NotificationVerb = "resolved"
	VerbBroadcast NotificationVerb = "broadcast"
	VerbOther     NotificationVerb = "other"
)

// ParseNotificationVerb validates a verb string coming from the API
func ParseNotificationVerb(s string) (NotificationVerb, error) {
	switch NotificationVerb(s) {
	case VerbLike, VerbComment, VerbFollow, VerbMention, VerbShare,
		VerbReport, VerbIssue, VerbResolved, VerbBroadcast, VerbOther:
		return NotificationVerb(s), nil
	}
	return "", fmt.Errorf("unknown notification verb %q", s)
}

// EmailTemplate returns the mail template for a notification verb.
// All verbs currently share one generic template.
func (v NotificationVerb) EmailTemplate() string {
	return "notification_generic"
}

// Notification is a message addressed to one user
type Notification struct {
	ID         string           `json:"id" db:"id"`
	UserID     string           `json:"user_id" db:"user_id"`
	Verb       NotificationVerb `json:"verb" db:"verb"`
	Message    string           `json:"message" db:"message"`
	SourceApp  string           `json:"source_app" db:"source_app"`
	ActorID    *string          `json:"actor_id" db:"actor_id"`
	TargetKind *string          `json:"target_kind" db:"target_kind"`
	TargetID   *string          `json:"target_id" db:"target_id"`
	Read       bool             `json:"read" db:"read"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// NotificationChannel is one delivery attempt of a notification over one channel.
// Exactly one row exists per (notification, kind), selected at creation time
// from a snapshot of the user's preferences.
type NotificationChannel struct {
	ID             string        `json:"id" db:"id"`
	NotificationID string        `json:"notification_id" db:"notification_id"`
	Kind           ChannelKind   `json:"kind" db:"kind"`
	Status         ChannelStatus `json:"status" db:"status"`
	IsRead         bool          `json:"is_read" db:"is_read"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// NotificationPreference holds per-user channel opt-in flags
type NotificationPreference struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Email     bool      `json:"email" db:"email"`
	SMS       bool      `json:"sms" db:"sms"`
	Push      bool      `json:"push" db:"push"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DefaultNotificationPreference is applied by the user-creation hook.
func DefaultNotificationPreference(userID string) *NotificationPreference {
	return &NotificationPreference{
		UserID: userID,
		Email:  true,
		SMS:    false,
		Push:   true,
	}
}

// EnabledChannels returns the channel kinds this preference opts into,
// in the fixed selection order.
func (p *NotificationPreference) EnabledChannels() []ChannelKind {
	var kinds []ChannelKind
	if p.Email {
		kinds = append(kinds, ChannelEmail)
	}
	if p.SMS {
		kinds = append(kinds, ChannelSMS)
	}
	if p.Push {
		kinds = append(kinds, ChannelPush)
	}
	return kinds
}

// FallbackChannels is the channel set used when a user has no preference row.
func FallbackChannels() []ChannelKind {
	return []ChannelKind{ChannelEmail, ChannelPush}
}
