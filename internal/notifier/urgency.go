package notifier

import "fmt"

// Urgency is the bucket every renderer derives from daysLeft. The
// bucketing is a contract; labels and colors are presentation detail.
type Urgency string

const (
	UrgencyInfo     Urgency = "info"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// Classify maps remaining whole days to an urgency bucket:
// <=1 day (including overdue and due today) is critical, 2-3 days is
// warning, everything further out is info.
func Classify(daysLeft int) Urgency {
	switch {
	case daysLeft <= 1:
		return UrgencyCritical
	case daysLeft <= 3:
		return UrgencyWarning
	default:
		return UrgencyInfo
	}
}

// Headline is the short channel-agnostic title for the reminder.
func Headline(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return "Overdue"
	case daysLeft == 0:
		return "Due today"
	case daysLeft == 1:
		return "Due tomorrow"
	case daysLeft <= 3:
		return "Due soon"
	default:
		return "Deadline reminder"
	}
}

// StatusLine describes the remaining time in words.
func StatusLine(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return fmt.Sprintf("Overdue by %d days", -daysLeft)
	case daysLeft == 0:
		return "Due today"
	case daysLeft == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", daysLeft)
	}
}

// Color returns the accent color used by rich renderers.
func Color(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return "#DC2626"
	case daysLeft == 0:
		return "#DC2626"
	case daysLeft == 1:
		return "#EF4444"
	case daysLeft <= 3:
		return "#F59E0B"
	case daysLeft <= 7:
		return "#3B82F6"
	default:
		return "#10B981"
	}
}
