package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
)

type eventRepository struct {
	BaseRepository
}

func NewEventRepository(base BaseRepository) repository.EventRepository {
	return &eventRepository{base}
}

func (r *eventRepository) ListOpen(ctx context.Context) ([]*model.DeadlineEvent, error) {
	query := `
        SELECT * FROM deadline_events
        WHERE status != $1
        ORDER BY due_date ASC
    `

	var events []*model.DeadlineEvent
	if err := r.GetDB().SelectContext(ctx, &events, query, model.EventStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to list open events: %w", err)
	}

	return events, nil
}

func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*model.DeadlineEvent, error) {
	query := `SELECT * FROM deadline_events WHERE id = $1`

	var event model.DeadlineEvent
	if err := r.GetDB().GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("deadline event", err)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	query := `UPDATE deadline_events SET status = $2 WHERE id = $1`

	result, err := r.GetDB().ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("deadline event", nil)
	}

	return nil
}
