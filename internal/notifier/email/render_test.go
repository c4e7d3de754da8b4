package email

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/notifier"
)

func reminderWith(daysLeft int) *notifier.Reminder {
	return &notifier.Reminder{
		Event: &model.DeadlineEvent{
			Title:   "License renewal",
			DueDate: "2026-09-15",
		},
		Project:  &model.Project{Name: "Compliance"},
		DaysLeft: daysLeft,
	}
}

func TestRender_Subjects(t *testing.T) {
	subject, _ := Render(reminderWith(7))
	assert.Contains(t, subject, "[Reminder]")
	assert.Contains(t, subject, "License renewal")

	subject, _ = Render(reminderWith(0))
	assert.Contains(t, subject, "[Due today]")

	subject, _ = Render(reminderWith(-2))
	assert.Contains(t, subject, "[Overdue]")
	assert.Contains(t, subject, "Overdue by 2 days")
}

func TestRender_BodyContents(t *testing.T) {
	_, body := Render(reminderWith(3))
	assert.Contains(t, body, "License renewal")
	assert.Contains(t, body, "Compliance")
	assert.Contains(t, body, "2026-09-15")
	assert.Contains(t, body, "3 days left")
	assert.Contains(t, body, notifier.Color(3))
}

func TestRender_EscapesHTML(t *testing.T) {
	r := reminderWith(2)
	r.Event.Title = `Renew <script>alert("x")</script>`

	_, body := Render(r)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
