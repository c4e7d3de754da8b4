package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
)

type ruleRepository struct {
	BaseRepository
}

func NewRuleRepository(base BaseRepository) repository.RuleRepository {
	return &ruleRepository{base}
}

func (r *ruleRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationRule, error) {
	query := `
        SELECT * FROM notification_rules
        WHERE user_id = $1
        ORDER BY days_before DESC
    `

	var rules []*model.NotificationRule
	if err := r.GetDB().SelectContext(ctx, &rules, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}

func (r *ruleRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationRule, error) {
	query := `
        SELECT * FROM notification_rules
        WHERE user_id = $1 AND is_active = true
        ORDER BY days_before DESC
    `

	var rules []*model.NotificationRule
	if err := r.GetDB().SelectContext(ctx, &rules, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	return rules, nil
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.NotificationRule) error {
	query := `
        INSERT INTO notification_rules (
            id, user_id, days_before, severity, is_active, channels, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		rule.ID,
		rule.UserID,
		rule.DaysBefore,
		rule.Severity,
		rule.IsActive,
		rule.Channels,
		rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM notification_rules WHERE id = $1 AND user_id = $2`

	result, err := r.GetDB().ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("notification rule", nil)
	}

	return nil
}
