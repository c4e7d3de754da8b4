package binding

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
	"github.com/smartdoc/tracker-api/pkg/logger"
	"github.com/smartdoc/tracker-api/pkg/metrics"
)

// CodeTTL is how long a verification code stays redeemable.
const CodeTTL = 15 * time.Minute

// Rejection causes surfaced to the chat user. Each submission failure
// maps to exactly one of these.
var (
	ErrCodeInvalid  = errors.New("verification code not recognized")
	ErrCodeExpired  = errors.New("verification code expired")
	ErrAlreadyBound = errors.New("account already bound to a chat")
	ErrChatInUse    = errors.New("chat already bound to another account")
)

// Service manages the chat binding lifecycle: issue a short-lived
// code on the web side, redeem it exactly once on the chat side.
type Service struct {
	profiles repository.ProfileRepository
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(profiles repository.ProfileRepository, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		profiles: profiles,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// GenerateCode issues a fresh 6-digit code for the user. Reissuing
// before the previous code expires simply replaces it; a profile that
// is already bound must unbind first.
func (s *Service) GenerateCode(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if profile.ChatBound() {
		return "", time.Time{}, apperrors.Conflict("profile is already bound to a chat", nil)
	}

	code, err := randomCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate code: %w", err)
	}

	expiresAt := s.now().Add(CodeTTL)
	if err := s.profiles.SetVerificationCode(ctx, userID, code, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	if s.metrics != nil {
		s.metrics.BindingCodesIssued.Inc()
	}
	s.log.Info("verification code issued", "user_id", userID)
	return code, expiresAt, nil
}

// SubmitCode redeems a code on behalf of a chat identity. The bind is a
// single compare-and-swap in storage, so two chats racing on the same
// code cannot both win; the loser is told the code is no longer valid.
func (s *Service) SubmitCode(ctx context.Context, chatUserID, code string) (*model.Profile, error) {
	if existing, err := s.profiles.GetByChatID(ctx, chatUserID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, s.reject("chat_in_use", ErrChatInUse)
	}

	profile, err := s.profiles.ConsumeVerificationCode(ctx, chatUserID, code, s.now())
	if err != nil {
		return nil, err
	}
	if profile != nil {
		if s.metrics != nil {
			s.metrics.BindingCompleted.Inc()
		}
		s.log.Info("chat identity bound", "user_id", profile.ID)
		return profile, nil
	}

	// The consume missed. Look the code up once more to tell the user
	// why; the answer is best-effort since state may move under us.
	holder, err := s.profiles.GetByVerificationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	switch {
	case holder == nil:
		return nil, s.reject("invalid", ErrCodeInvalid)
	case holder.ChatBound():
		return nil, s.reject("already_bound", ErrAlreadyBound)
	case holder.ChatCodeExpiresAt != nil && !holder.ChatCodeExpiresAt.After(s.now()):
		return nil, s.reject("expired", ErrCodeExpired)
	default:
		return nil, s.reject("invalid", ErrCodeInvalid)
	}
}

// Unbind removes the chat association and any outstanding code.
func (s *Service) Unbind(ctx context.Context, userID uuid.UUID) error {
	if err := s.profiles.ClearBinding(ctx, userID); err != nil {
		return err
	}
	s.log.Info("chat identity unbound", "user_id", userID)
	return nil
}

// Status reports the binding state for the web UI. The chat id is
// masked: it is an external identifier the frontend has no use for.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (bound bool, maskedChatID string, err error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return false, "", err
	}
	if !profile.ChatBound() {
		return false, "", nil
	}
	return true, MaskChatID(*profile.ChatUserID), nil
}

// MaskChatID keeps the last two characters of a chat identifier.
func MaskChatID(id string) string {
	if len(id) <= 2 {
		return "****"
	}
	return "****" + id[len(id)-2:]
}

func (s *Service) reject(cause string, err error) error {
	if s.metrics != nil {
		s.metrics.BindingRejected.WithLabelValues(cause).Inc()
	}
	return err
}

// randomCode draws a uniform 6-digit code from crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
