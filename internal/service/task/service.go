package task

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
	"github.com/smartdoc/tracker-api/pkg/logger"
)

var (
	ErrEventNotFound = errors.New("deadline event not found")
	ErrNotOwner      = errors.New("only the project owner can complete this task")
	ErrChatNotBound  = errors.New("chat identity is not bound to any account")
)

// Service transitions deadline events. Authorization is re-derived from
// current state on every call rather than trusted from the caller.
type Service struct {
	events   repository.EventRepository
	projects repository.ProjectRepository
	profiles repository.ProfileRepository
	log      *logger.Logger
}

func NewService(
	events repository.EventRepository,
	projects repository.ProjectRepository,
	profiles repository.ProfileRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		events:   events,
		projects: projects,
		profiles: profiles,
		log:      log,
	}
}

// MarkCompleteByChat closes an event on behalf of a chat identity. The
// button in the chat message is not an authorization: the chat id is
// resolved back to a profile and checked against the current project
// owner at click time. A stale button in an old message gains nothing.
func (s *Service) MarkCompleteByChat(ctx context.Context, chatUserID string, eventID uuid.UUID) (*model.DeadlineEvent, error) {
	profile, err := s.profiles.GetByChatID(ctx, chatUserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrChatNotBound
	}
	return s.markComplete(ctx, profile.ID, eventID)
}

// MarkComplete closes an event for an authenticated web user.
func (s *Service) MarkComplete(ctx context.Context, userID, eventID uuid.UUID) (*model.DeadlineEvent, error) {
	return s.markComplete(ctx, userID, eventID)
}

func (s *Service) markComplete(ctx context.Context, userID, eventID uuid.UUID) (*model.DeadlineEvent, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	project, err := s.projects.GetForDocument(ctx, event.DocumentID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if project.OwnerID != userID {
		return nil, ErrNotOwner
	}

	if event.Status == model.EventStatusCompleted {
		return event, nil
	}

	if err := s.events.UpdateStatus(ctx, eventID, model.EventStatusCompleted); err != nil {
		return nil, err
	}
	event.Status = model.EventStatusCompleted

	s.log.Info("event marked complete", "event_id", eventID, "user_id", userID)
	return event, nil
}
