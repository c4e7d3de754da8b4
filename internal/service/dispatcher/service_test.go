package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/notifier"
	"github.com/smartdoc/tracker-api/pkg/logger"
)

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) ListOpen(ctx context.Context) ([]*model.DeadlineEvent, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*model.DeadlineEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEventRepo) Get(ctx context.Context, id uuid.UUID) (*model.DeadlineEvent, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.DeadlineEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) GetForDocument(ctx context.Context, documentID uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, documentID)
	if v := args.Get(0); v != nil {
		return v.(*model.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) ListAudience(ctx context.Context, projectID uuid.UUID) ([]*model.Profile, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]*model.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRuleRepo struct {
	mock.Mock
}

func (m *mockRuleRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationRule, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*model.NotificationRule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRuleRepo) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationRule, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*model.NotificationRule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *model.NotificationRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *mockRuleRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// recordingLogRepo keeps inserted rows in memory and enforces the
// daily uniqueness the real index provides.
type recordingLogRepo struct {
	mu      sync.Mutex
	entries []*model.NotificationLog
	sent    map[string]bool
	preSent map[string]bool
}

func newRecordingLogRepo() *recordingLogRepo {
	return &recordingLogRepo{sent: make(map[string]bool), preSent: make(map[string]bool)}
}

func pairKey(userID, eventID uuid.UUID) string {
	return userID.String() + ":" + eventID.String()
}

func (r *recordingLogRepo) markSent(userID, eventID uuid.UUID) {
	r.preSent[pairKey(userID, eventID)] = true
}

func (r *recordingLogRepo) Create(ctx context.Context, log *model.NotificationLog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.Status == model.NotificationSent {
		key := pairKey(log.UserID, log.EventID) + ":" + log.Channel
		if r.sent[key] {
			return false, nil
		}
		r.sent[key] = true
	}
	r.entries = append(r.entries, log)
	return true, nil
}

func (r *recordingLogRepo) SentSince(ctx context.Context, userID, eventID uuid.UUID, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.preSent[pairKey(userID, eventID)] {
		return true, nil
	}
	for _, e := range r.entries {
		if e.UserID == userID && e.EventID == eventID && e.Status == model.NotificationSent && !e.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *recordingLogRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.NotificationLog, error) {
	return r.entries, nil
}

func (r *recordingLogRepo) byOutcome(outcome model.NotificationOutcome) []*model.NotificationLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.NotificationLog
	for _, e := range r.entries {
		if e.Status == outcome {
			out = append(out, e)
		}
	}
	return out
}

// stubSender answers with a fixed result per user, recording calls.
type stubSender struct {
	channel string
	can     func(*model.Profile) bool
	result  notifier.Result

	mu    sync.Mutex
	calls []uuid.UUID
}

func (s *stubSender) Channel() string { return s.channel }

func (s *stubSender) CanSend(user *model.Profile) bool {
	if s.can == nil {
		return true
	}
	return s.can(user)
}

func (s *stubSender) Send(ctx context.Context, user *model.Profile, reminder *notifier.Reminder) notifier.Result {
	s.mu.Lock()
	s.calls = append(s.calls, user.ID)
	s.mu.Unlock()
	return s.result
}

type fixture struct {
	events   *mockEventRepo
	projects *mockProjectRepo
	rules    *mockRuleRepo
	logs     *recordingLogRepo
	chat     *stubSender
	email    *stubSender
	svc      *Service

	user    *model.Profile
	project *model.Project
}

func dueIn(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(model.DueDateLayout)
}

func makeEvent(days int) *model.DeadlineEvent {
	return &model.DeadlineEvent{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Title:      "Contract renewal",
		DueDate:    dueIn(days),
		Status:     model.EventStatusConfirmed,
	}
}

func newFixture() *fixture {
	f := &fixture{
		events:   new(mockEventRepo),
		projects: new(mockProjectRepo),
		rules:    new(mockRuleRepo),
		logs:     newRecordingLogRepo(),
		chat:     &stubSender{channel: model.ChannelChat, result: notifier.Sent()},
		email:    &stubSender{channel: model.ChannelEmail, result: notifier.Sent()},
	}

	chatID := "42"
	f.user = &model.Profile{ID: uuid.New(), Email: "u@x.y", ChatUserID: &chatID}
	f.project = &model.Project{ID: uuid.New(), Name: "Renewals", OwnerID: f.user.ID}

	f.svc = NewService(
		f.events, f.projects, f.rules, f.logs,
		[]notifier.Sender{f.chat, f.email},
		nil,
		logger.NewLogger(nil),
		nil,
		Options{Location: time.UTC, Workers: 2, SendTimeout: time.Second},
	)
	return f
}

func (f *fixture) expectEvent(event *model.DeadlineEvent, rules ...*model.NotificationRule) {
	f.projects.On("GetForDocument", mock.Anything, event.DocumentID).Return(f.project, nil)
	f.projects.On("ListAudience", mock.Anything, f.project.ID).Return([]*model.Profile{f.user}, nil)
	f.rules.On("ListActiveForUser", mock.Anything, f.user.ID).Return(rules, nil)
}

func activeRule(daysBefore int, channels ...string) *model.NotificationRule {
	return &model.NotificationRule{
		ID:         uuid.New(),
		DaysBefore: daysBefore,
		IsActive:   true,
		Channels:   pq.StringArray(channels),
	}
}

func TestRun_MatchedRuleSendsOnRuleChannels(t *testing.T) {
	f := newFixture()
	event := makeEvent(7)

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event, activeRule(7, model.ChannelEmail))

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Events)
	assert.Equal(t, 1, report.Sent)
	assert.Len(t, f.email.calls, 1)
	assert.Empty(t, f.chat.calls, "chat is not on the rule's channel list")

	sent := f.logs.byOutcome(model.NotificationSent)
	assert.Len(t, sent, 1)
	assert.Equal(t, model.ChannelEmail, sent[0].Channel)
	assert.Contains(t, sent[0].Message, event.Title)
}

func TestRun_NoMatchingRuleStaysQuiet(t *testing.T) {
	f := newFixture()
	event := makeEvent(5)

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event, activeRule(7, model.ChannelEmail))

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Empty(t, f.logs.entries)
}

func TestRun_OverdueWithoutRulesUsesAllChannels(t *testing.T) {
	f := newFixture()
	event := makeEvent(-3)

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event)

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Len(t, f.chat.calls, 1)
	assert.Len(t, f.email.calls, 1)
}

func TestRun_DedupSuppressesSecondSweep(t *testing.T) {
	f := newFixture()
	event := makeEvent(0)

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event, activeRule(0, model.ChannelEmail))

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Sent)

	report, err = f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Equal(t, 1, report.Suppressed)
	assert.Len(t, f.email.calls, 1, "second sweep must not resend")
}

func TestRun_FailedSendIsNotSuppressedNextSweep(t *testing.T) {
	f := newFixture()
	event := makeEvent(1)
	f.email.result = notifier.Failed(errors.New("smtp unreachable"))

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event, activeRule(1, model.ChannelEmail))

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	failed := f.logs.byOutcome(model.NotificationFailed)
	assert.Len(t, failed, 1)
	assert.NotNil(t, failed[0].ErrorMessage)

	// Only 'sent' rows open the dedup window; the retry goes out.
	report, err = f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, f.email.calls, 2)
}

func TestRun_ChannelFailureIsolated(t *testing.T) {
	f := newFixture()
	event := makeEvent(-1)
	f.chat.result = notifier.Failed(errors.New("bot down"))

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event)

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Sent, "email still goes out when chat fails")
	assert.Equal(t, 1, report.Failed)
}

func TestRun_UnavailableChannelRecordedAsSkipped(t *testing.T) {
	f := newFixture()
	event := makeEvent(-1)
	f.chat.can = func(*model.Profile) bool { return false }

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event)

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, f.chat.calls)

	skipped := f.logs.byOutcome(model.NotificationSkipped)
	assert.Len(t, skipped, 1)
	assert.Equal(t, model.ChannelChat, skipped[0].Channel)
}

func TestRun_UnparsableDueDateSkipsEvent(t *testing.T) {
	f := newFixture()
	event := makeEvent(3)
	event.DueDate = "soon"

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Events)
	assert.Zero(t, report.Sent)
	f.projects.AssertNotCalled(t, "GetForDocument")
}

func TestRun_BadEventDoesNotStopOthers(t *testing.T) {
	f := newFixture()
	broken := makeEvent(2)
	good := makeEvent(-1)

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{broken, good}, nil)
	f.projects.On("GetForDocument", mock.Anything, broken.DocumentID).Return(nil, errors.New("db hiccup"))
	f.projects.On("GetForDocument", mock.Anything, good.DocumentID).Return(f.project, nil)
	f.projects.On("ListAudience", mock.Anything, f.project.ID).Return([]*model.Profile{f.user}, nil)
	f.rules.On("ListActiveForUser", mock.Anything, f.user.ID).Return(nil, nil)

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Sent, "the healthy event still notifies on both channels")
}

func TestRun_ListOpenFailureAbortsRun(t *testing.T) {
	f := newFixture()

	f.events.On("ListOpen", mock.Anything).Return(nil, errors.New("db down"))

	_, err := f.svc.Run(context.Background())
	assert.Error(t, err)
}

func TestLockPair_SerializesSamePair(t *testing.T) {
	s := &Service{pairLocks: make(map[string]*pairLock)}
	userID, eventID := uuid.New(), uuid.New()

	var inCritical, overlaps int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.lockPair(userID, eventID)
			if !atomic.CompareAndSwapInt32(&inCritical, 0, 1) {
				atomic.AddInt32(&overlaps, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.StoreInt32(&inCritical, 0)
			unlock()
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "a pair must never have two lock holders")
	assert.Empty(t, s.pairLocks, "released pairs are retired from the table")
}

func TestRun_PriorSendSuppressesToday(t *testing.T) {
	f := newFixture()
	event := makeEvent(0)
	f.logs.markSent(f.user.ID, event.ID)

	f.events.On("ListOpen", mock.Anything).Return([]*model.DeadlineEvent{event}, nil)
	f.expectEvent(event, activeRule(0, model.ChannelChat, model.ChannelEmail))

	report, err := f.svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Equal(t, 1, report.Suppressed)
}
