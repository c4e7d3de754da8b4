package rule

import (
	"github.com/smartdoc/tracker-api/internal/model"
)

// Decision is the outcome of evaluating one user's rules against one
// deadline event.
type Decision struct {
	Notify bool
	// Channels enabled by the rules that fired. Empty only when the
	// overdue override fired with no matching rules; callers treat that
	// as "all channels".
	Channels []string
	// Overdue marks the unconditional past-due escalation.
	Overdue bool
}

// Engine decides whether a reminder is due. It is pure: storage and
// delivery live elsewhere.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate applies the user's rules to an event that is daysLeft whole
// days from its due date.
//
// Anything past due always notifies, whether or not a rule matches:
// an overdue deadline is never silently dropped. Otherwise a reminder
// fires only when an active rule's days_before equals daysLeft exactly.
// Inactive rules never match, not even for overdue events.
func (e *Engine) Evaluate(rules []*model.NotificationRule, daysLeft int) Decision {
	channels := matchedChannels(rules, daysLeft)

	if daysLeft < 0 {
		return Decision{Notify: true, Channels: channels, Overdue: true}
	}

	if len(channels) == 0 {
		return Decision{}
	}
	return Decision{Notify: true, Channels: channels}
}

// matchedChannels unions the channel sets of every active rule whose
// days_before equals daysLeft.
func matchedChannels(rules []*model.NotificationRule, daysLeft int) []string {
	set := make(map[string]struct{})
	var channels []string

	for _, r := range rules {
		if !r.IsActive || r.DaysBefore != daysLeft {
			continue
		}
		for _, c := range r.Channels {
			if _, ok := set[c]; ok {
				continue
			}
			set[c] = struct{}{}
			channels = append(channels, c)
		}
	}
	return channels
}
