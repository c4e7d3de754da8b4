package binding

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/smartdoc/tracker-api/internal/model"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
	"github.com/smartdoc/tracker-api/pkg/logger"
)

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*model.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfileRepo) GetByChatID(ctx context.Context, chatUserID string) (*model.Profile, error) {
	args := m.Called(ctx, chatUserID)
	if p := args.Get(0); p != nil {
		return p.(*model.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfileRepo) GetByVerificationCode(ctx context.Context, code string) (*model.Profile, error) {
	args := m.Called(ctx, code)
	if p := args.Get(0); p != nil {
		return p.(*model.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfileRepo) SetVerificationCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, code, expiresAt)
	return args.Error(0)
}

func (m *mockProfileRepo) ConsumeVerificationCode(ctx context.Context, chatUserID, code string, now time.Time) (*model.Profile, error) {
	args := m.Called(ctx, chatUserID, code, now)
	if p := args.Get(0); p != nil {
		return p.(*model.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfileRepo) ClearBinding(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestService(repo *mockProfileRepo) *Service {
	return NewService(repo, logger.NewLogger(nil), nil)
}

func strPtr(s string) *string { return &s }

func TestGenerateCode(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	repo.On("Get", mock.Anything, userID).Return(&model.Profile{ID: userID, Email: "a@b.c"}, nil)
	repo.On("SetVerificationCode", mock.Anything, userID, mock.MatchedBy(func(code string) bool {
		return len(code) == 6
	}), mock.Anything).Return(nil)

	code, expiresAt, err := svc.GenerateCode(context.Background(), userID)
	assert.NoError(t, err)
	assert.Len(t, code, 6)
	assert.WithinDuration(t, time.Now().Add(CodeTTL), expiresAt, 5*time.Second)
	repo.AssertExpectations(t)
}

func TestGenerateCode_AlreadyBound(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)
	userID := uuid.New()

	repo.On("Get", mock.Anything, userID).Return(&model.Profile{
		ID:         userID,
		ChatUserID: strPtr("12345"),
	}, nil)

	_, _, err := svc.GenerateCode(context.Background(), userID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	repo.AssertNotCalled(t, "SetVerificationCode")
}

func TestSubmitCode_Success(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)
	bound := &model.Profile{ID: uuid.New(), Email: "a@b.c", ChatUserID: strPtr("777")}

	repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
	repo.On("ConsumeVerificationCode", mock.Anything, "777", "123456", mock.Anything).Return(bound, nil)

	got, err := svc.SubmitCode(context.Background(), "777", "123456")
	assert.NoError(t, err)
	assert.Equal(t, bound.ID, got.ID)
}

func TestSubmitCode_Invalid(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)

	repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
	repo.On("ConsumeVerificationCode", mock.Anything, "777", "000000", mock.Anything).Return(nil, nil)
	repo.On("GetByVerificationCode", mock.Anything, "000000").Return(nil, nil)

	_, err := svc.SubmitCode(context.Background(), "777", "000000")
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestSubmitCode_Expired(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)
	past := time.Now().Add(-time.Minute)
	holder := &model.Profile{ID: uuid.New(), ChatCodeExpiresAt: &past}

	repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
	repo.On("ConsumeVerificationCode", mock.Anything, "777", "123456", mock.Anything).Return(nil, nil)
	repo.On("GetByVerificationCode", mock.Anything, "123456").Return(holder, nil)

	_, err := svc.SubmitCode(context.Background(), "777", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestSubmitCode_TTLBoundary(t *testing.T) {
	issued := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	expiresAt := issued.Add(CodeTTL)

	t.Run("just inside the window", func(t *testing.T) {
		repo := new(mockProfileRepo)
		svc := newTestService(repo)
		svc.now = func() time.Time { return expiresAt.Add(-time.Second) }
		bound := &model.Profile{ID: uuid.New(), ChatUserID: strPtr("777")}

		repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
		repo.On("ConsumeVerificationCode", mock.Anything, "777", "123456", expiresAt.Add(-time.Second)).Return(bound, nil)

		got, err := svc.SubmitCode(context.Background(), "777", "123456")
		assert.NoError(t, err)
		assert.Equal(t, bound.ID, got.ID)
	})

	t.Run("at the boundary", func(t *testing.T) {
		repo := new(mockProfileRepo)
		svc := newTestService(repo)
		svc.now = func() time.Time { return expiresAt }
		holder := &model.Profile{ID: uuid.New(), ChatCodeExpiresAt: &expiresAt}

		repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
		repo.On("ConsumeVerificationCode", mock.Anything, "777", "123456", expiresAt).Return(nil, nil)
		repo.On("GetByVerificationCode", mock.Anything, "123456").Return(holder, nil)

		_, err := svc.SubmitCode(context.Background(), "777", "123456")
		assert.ErrorIs(t, err, ErrCodeExpired)
	})

	t.Run("just past the window", func(t *testing.T) {
		repo := new(mockProfileRepo)
		svc := newTestService(repo)
		svc.now = func() time.Time { return expiresAt.Add(time.Second) }
		holder := &model.Profile{ID: uuid.New(), ChatCodeExpiresAt: &expiresAt}

		repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
		repo.On("ConsumeVerificationCode", mock.Anything, "777", "123456", mock.Anything).Return(nil, nil)
		repo.On("GetByVerificationCode", mock.Anything, "123456").Return(holder, nil)

		_, err := svc.SubmitCode(context.Background(), "777", "123456")
		assert.ErrorIs(t, err, ErrCodeExpired)
	})

	t.Run("unexpired mismatch reads as invalid", func(t *testing.T) {
		repo := new(mockProfileRepo)
		svc := newTestService(repo)
		svc.now = func() time.Time { return expiresAt.Add(-time.Second) }
		holder := &model.Profile{ID: uuid.New(), ChatCodeExpiresAt: &expiresAt}

		repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
		repo.On("ConsumeVerificationCode", mock.Anything, "777", "999999", mock.Anything).Return(nil, nil)
		repo.On("GetByVerificationCode", mock.Anything, "999999").Return(holder, nil)

		_, err := svc.SubmitCode(context.Background(), "777", "999999")
		assert.ErrorIs(t, err, ErrCodeInvalid)
	})
}

func TestSubmitCode_TargetAlreadyBound(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)
	holder := &model.Profile{ID: uuid.New(), ChatUserID: strPtr("999")}

	repo.On("GetByChatID", mock.Anything, "777").Return(nil, nil)
	repo.On("ConsumeVerificationCode", mock.Anything, "777", "123456", mock.Anything).Return(nil, nil)
	repo.On("GetByVerificationCode", mock.Anything, "123456").Return(holder, nil)

	_, err := svc.SubmitCode(context.Background(), "777", "123456")
	assert.ErrorIs(t, err, ErrAlreadyBound)
}

func TestSubmitCode_ChatInUse(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := newTestService(repo)
	existing := &model.Profile{ID: uuid.New(), ChatUserID: strPtr("777")}

	repo.On("GetByChatID", mock.Anything, "777").Return(existing, nil)

	_, err := svc.SubmitCode(context.Background(), "777", "123456")
	assert.ErrorIs(t, err, ErrChatInUse)
	repo.AssertNotCalled(t, "ConsumeVerificationCode")
}

func TestMaskChatID(t *testing.T) {
	assert.Equal(t, "****89", MaskChatID("123456789"))
	assert.Equal(t, "****", MaskChatID("12"))
}
