package notifier

import (
	"context"
	"fmt"

	"github.com/smartdoc/tracker-api/internal/model"
)

// Reminder is everything a channel needs to render one notification.
type Reminder struct {
	Event    *model.DeadlineEvent
	Project  *model.Project
	DaysLeft int
}

// PlainText is the channel-neutral rendering stored in the audit log.
func (r *Reminder) PlainText() string {
	return fmt.Sprintf("Task: %s\nProject: %s\nDue: %s\nRemaining: %d days",
		r.Event.Title, r.Project.Name, r.Event.DueDate, r.DaysLeft)
}

// Result is the outcome of one channel attempt. Senders never return
// errors across the dispatcher boundary; failures become a Result with
// a human-readable detail string.
type Result struct {
	Outcome model.NotificationOutcome
	Detail  string
}

func Sent() Result {
	return Result{Outcome: model.NotificationSent}
}

func Failed(err error) Result {
	return Result{Outcome: model.NotificationFailed, Detail: err.Error()}
}

func Skipped(reason string) Result {
	return Result{Outcome: model.NotificationSkipped, Detail: reason}
}

// Sender delivers one reminder through one external channel.
type Sender interface {
	Channel() string
	// CanSend reports whether the channel is usable for this user
	// (chat requires a bound identity, email a non-empty address).
	CanSend(user *model.Profile) bool
	Send(ctx context.Context, user *model.Profile, reminder *Reminder) Result
}

// Refresher is implemented by senders whose configuration lives in the
// settings store; the dispatcher refreshes them once per run.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// CallWithContext runs fn and respects ctx cancellation for SDKs that
// do not take a context themselves. The abandoned call keeps running in
// the background; its result is discarded.
func CallWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
