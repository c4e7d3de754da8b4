package email

import (
	"fmt"
	"html"

	"github.com/smartdoc/tracker-api/internal/notifier"
)

// Render builds the subject and HTML body for a deadline reminder.
func Render(r *notifier.Reminder) (subject, body string) {
	status := notifier.StatusLine(r.DaysLeft)
	color := notifier.Color(r.DaysLeft)

	switch {
	case r.DaysLeft > 0:
		subject = fmt.Sprintf("[Reminder] %s: %s", r.Event.Title, status)
	case r.DaysLeft == 0:
		subject = fmt.Sprintf("[Due today] %s", r.Event.Title)
	default:
		subject = fmt.Sprintf("[Overdue] %s: %s", r.Event.Title, status)
	}

	title := html.EscapeString(r.Event.Title)
	project := html.EscapeString(r.Project.Name)

	body = fmt.Sprintf(`
<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
    <div style="background: %s; color: white; padding: 16px 20px; border-radius: 8px 8px 0 0;">
        <h2 style="margin: 0; font-size: 16px;">%s</h2>
    </div>
    <div style="border: 1px solid #e5e7eb; border-top: none; padding: 20px; border-radius: 0 0 8px 8px;">
        <h3 style="margin: 0 0 8px 0; font-size: 18px; color: #111827;">%s</h3>
        <p style="margin: 4px 0; color: #6b7280; font-size: 14px;">Project: %s</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 16px 0;">
        <table style="width: 100%%; font-size: 14px;">
            <tr>
                <td style="color: #9ca3af; padding: 4px 0;">Due date</td>
                <td style="text-align: right; color: #374151; font-weight: 500;">%s</td>
            </tr>
            <tr>
                <td style="color: #9ca3af; padding: 4px 0;">Status</td>
                <td style="text-align: right; color: %s; font-weight: 600;">%s</td>
            </tr>
        </table>
    </div>
    <p style="text-align: center; margin-top: 16px; font-size: 12px; color: #9ca3af;">
        Smart Doc Tracker
    </p>
</div>`,
		color,
		notifier.Headline(r.DaysLeft),
		title,
		project,
		r.Event.DueDate,
		color,
		status,
	)

	return subject, body
}
