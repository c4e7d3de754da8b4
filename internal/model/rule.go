package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification channels.
const (
	ChannelChat  = "chat"
	ChannelEmail = "email"
)

// NotificationRule belongs to one user. DaysBefore may be negative to
// mean overdue. Severity is informational only; it never changes
// matching behavior. A user may hold several rules with the same
// DaysBefore value.
type NotificationRule struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	UserID     uuid.UUID      `json:"user_id" db:"user_id"`
	DaysBefore int            `json:"days_before" db:"days_before"`
	Severity   Severity       `json:"severity" db:"severity"`
	IsActive   bool           `json:"is_active" db:"is_active"`
	Channels   pq.StringArray `json:"channels" db:"channels"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// HasChannel reports whether the rule enables the given channel.
func (r *NotificationRule) HasChannel(channel string) bool {
	for _, c := range r.Channels {
		if c == channel {
			return true
		}
	}
	return false
}
