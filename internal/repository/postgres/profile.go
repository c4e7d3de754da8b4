package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query := `SELECT * FROM profiles WHERE id = $1`

	var profile model.Profile
	if err := r.GetDB().GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("profile", err)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// GetByChatID returns nil without error when no profile is bound to the
// chat identity.
func (r *profileRepository) GetByChatID(ctx context.Context, chatUserID string) (*model.Profile, error) {
	query := `SELECT * FROM profiles WHERE chat_user_id = $1`

	var profile model.Profile
	if err := r.GetDB().GetContext(ctx, &profile, query, chatUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by chat id: %w", err)
	}

	return &profile, nil
}

// GetByVerificationCode returns nil without error when no profile holds
// the code.
func (r *profileRepository) GetByVerificationCode(ctx context.Context, code string) (*model.Profile, error) {
	query := `SELECT * FROM profiles WHERE chat_verification_code = $1`

	var profile model.Profile
	if err := r.GetDB().GetContext(ctx, &profile, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by code: %w", err)
	}

	return &profile, nil
}

func (r *profileRepository) SetVerificationCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	query := `
        UPDATE profiles
        SET chat_verification_code = $2, chat_code_expires_at = $3
        WHERE id = $1 AND chat_user_id IS NULL
    `

	result, err := r.GetDB().ExecContext(ctx, query, userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("unbound profile", nil)
	}

	return nil
}

// ConsumeVerificationCode is the single atomic read-modify-write of the
// binding protocol: match, bind and clear in one statement so two
// near-simultaneous submissions of the same code cannot both succeed.
func (r *profileRepository) ConsumeVerificationCode(ctx context.Context, chatUserID, code string, now time.Time) (*model.Profile, error) {
	query := `
        UPDATE profiles
        SET chat_user_id = $1,
            chat_verification_code = NULL,
            chat_code_expires_at = NULL,
            updated_at = $3
        WHERE chat_verification_code = $2
          AND chat_code_expires_at > $3
          AND chat_user_id IS NULL
        RETURNING *
    `

	var profile model.Profile
	if err := r.GetDB().GetContext(ctx, &profile, query, chatUserID, code, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume verification code: %w", err)
	}

	return &profile, nil
}

func (r *profileRepository) ClearBinding(ctx context.Context, userID uuid.UUID) error {
	query := `
        UPDATE profiles
        SET chat_user_id = NULL,
            chat_verification_code = NULL,
            chat_code_expires_at = NULL,
            updated_at = $2
        WHERE id = $1
    `

	if _, err := r.GetDB().ExecContext(ctx, query, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to clear binding: %w", err)
	}

	return nil
}
