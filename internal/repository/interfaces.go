package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
)

// All repository interfaces in one file
type (
	// EventRepository reads deadline events and writes status transitions.
	EventRepository interface {
		ListOpen(ctx context.Context) ([]*model.DeadlineEvent, error)
		Get(ctx context.Context, id uuid.UUID) (*model.DeadlineEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error
	}

	// ProjectRepository resolves the audience for a deadline event.
	ProjectRepository interface {
		GetForDocument(ctx context.Context, documentID uuid.UUID) (*model.Project, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
		// ListAudience returns the project owner plus every accepted
		// member, deduplicated by user identity.
		ListAudience(ctx context.Context, projectID uuid.UUID) ([]*model.Profile, error)
	}

	RuleRepository interface {
		ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationRule, error)
		ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationRule, error)
		Create(ctx context.Context, rule *model.NotificationRule) error
		Delete(ctx context.Context, id, userID uuid.UUID) error
	}

	// NotificationLogRepository is the append-only audit ledger. Create
	// must use insert-if-absent semantics for 'sent' rows so that two
	// dispatcher instances can never both record a send for the same
	// (user, event, channel, day).
	NotificationLogRepository interface {
		Create(ctx context.Context, log *model.NotificationLog) (inserted bool, err error)
		SentSince(ctx context.Context, userID, eventID uuid.UUID, since time.Time) (bool, error)
		ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.NotificationLog, error)
	}

	// ProfileRepository owns the chat binding fields on the profile row.
	// The chat-side lookups return nil without error on no match.
	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
		GetByChatID(ctx context.Context, chatUserID string) (*model.Profile, error)
		GetByVerificationCode(ctx context.Context, code string) (*model.Profile, error)
		SetVerificationCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error
		// ConsumeVerificationCode atomically binds chatUserID to the
		// profile holding a live matching code and clears the code in
		// the same statement. Returns nil when no profile qualifies.
		ConsumeVerificationCode(ctx context.Context, chatUserID, code string, now time.Time) (*model.Profile, error)
		ClearBinding(ctx context.Context, userID uuid.UUID) error
	}

	SettingsRepository interface {
		Get(ctx context.Context, key string) (json.RawMessage, error)
		Set(ctx context.Context, key string, value json.RawMessage) error
	}
)
