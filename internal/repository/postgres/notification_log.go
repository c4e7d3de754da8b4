package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
)

type notificationLogRepository struct {
	BaseRepository
}

func NewNotificationLogRepository(base BaseRepository) repository.NotificationLogRepository {
	return &notificationLogRepository{base}
}

// Create appends one delivery attempt. The partial unique index
// uq_notification_logs_sent_daily makes the insert a no-op when another
// writer already recorded a 'sent' row for the same
// (user, event, channel, day); callers learn about it through the
// returned flag.
func (r *notificationLogRepository) Create(ctx context.Context, log *model.NotificationLog) (bool, error) {
	query := `
        INSERT INTO notification_logs (
            id, user_id, event_id, channel, status, message,
            error_message, sent_on, sent_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT DO NOTHING
    `

	result, err := r.GetDB().ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.EventID,
		log.Channel,
		log.Status,
		log.Message,
		log.ErrorMessage,
		log.SentOn,
		log.SentAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create notification log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *notificationLogRepository) SentSince(ctx context.Context, userID, eventID uuid.UUID, since time.Time) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM notification_logs
            WHERE user_id = $1 AND event_id = $2
              AND status = $3 AND sent_at >= $4
        )
    `

	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, userID, eventID, model.NotificationSent, since); err != nil {
		return false, fmt.Errorf("failed to check notification log: %w", err)
	}

	return exists, nil
}

func (r *notificationLogRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT * FROM notification_logs
        WHERE user_id = $1
        ORDER BY sent_at DESC
        LIMIT $2
    `

	var logs []*model.NotificationLog
	if err := r.GetDB().SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}

	return logs, nil
}
