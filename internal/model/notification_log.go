package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationOutcome string

const (
	NotificationSent    NotificationOutcome = "sent"
	NotificationFailed  NotificationOutcome = "failed"
	NotificationSkipped NotificationOutcome = "skipped"
)

// NotificationLog is an immutable record of one delivery attempt on one
// channel. It is both the audit trail and the sole source of truth for
// "was this user already notified for this event today": the dedup check
// is never recomputed from other tables.
//
// SentOn carries the calendar day of the attempt in the notifier's
// configured timezone; a partial unique index on
// (user_id, event_id, channel, sent_on) for status 'sent' closes the
// concurrent double-send race at the storage layer.
type NotificationLog struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	UserID       uuid.UUID           `json:"user_id" db:"user_id"`
	EventID      uuid.UUID           `json:"event_id" db:"event_id"`
	Channel      string              `json:"channel" db:"channel"`
	Status       NotificationOutcome `json:"status" db:"status"`
	Message      string              `json:"message" db:"message"`
	ErrorMessage *string             `json:"error_message,omitempty" db:"error_message"`
	SentOn       time.Time           `json:"sent_on" db:"sent_on"`
	SentAt       time.Time           `json:"sent_at" db:"sent_at"`
}
