package model

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCompleted EventStatus = "completed"
)

// DueDateLayout is the calendar-date format the parsing pipeline writes.
const DueDateLayout = "2006-01-02"

// DeadlineEvent is a deadline extracted from a document. DueDate is a
// calendar date without a time component; it may be empty or malformed
// for events the pipeline could not fully parse.
type DeadlineEvent struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	DocumentID      uuid.UUID   `json:"document_id" db:"document_id"`
	Title           string      `json:"title" db:"title"`
	Description     *string     `json:"description,omitempty" db:"description"`
	DueDate         string      `json:"due_date" db:"due_date"`
	Status          EventStatus `json:"status" db:"status"`
	ConfidenceScore int         `json:"confidence_score" db:"confidence_score"`
	SourceText      *string     `json:"source_text,omitempty" db:"source_text"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// ParseDueDate returns the due date as a UTC midnight time. Events with
// a missing or unparsable date are not ready for notification.
func (e *DeadlineEvent) ParseDueDate() (time.Time, error) {
	return time.ParseInLocation(DueDateLayout, e.DueDate, time.UTC)
}
