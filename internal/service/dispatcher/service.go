package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/notifier"
	"github.com/smartdoc/tracker-api/internal/repository"
	"github.com/smartdoc/tracker-api/internal/service/rule"
	"github.com/smartdoc/tracker-api/pkg/logger"
	"github.com/smartdoc/tracker-api/pkg/messaging"
	"github.com/smartdoc/tracker-api/pkg/metrics"
)

const runTopic = "notifier.runs"

// ErrRunInProgress is returned when a sweep is requested while another
// one is still running.
var ErrRunInProgress = errors.New("dispatcher run already in progress")

// defaultChannels is what an overdue escalation uses when none of the
// user's rules fired: reach the user everywhere rather than nowhere.
var defaultChannels = []string{model.ChannelChat, model.ChannelEmail}

// Options tune one dispatcher instance.
type Options struct {
	Location    *time.Location
	Workers     int
	SendTimeout time.Duration
}

// Report summarizes one run for logs and the manual trigger response.
type Report struct {
	Events     int       `json:"events"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Suppressed int       `json:"suppressed"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`

	mu sync.Mutex
}

func (r *Report) add(outcome model.NotificationOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case model.NotificationSent:
		r.Sent++
	case model.NotificationFailed:
		r.Failed++
	case model.NotificationSkipped:
		r.Skipped++
	}
}

func (r *Report) suppress() {
	r.mu.Lock()
	r.Suppressed++
	r.mu.Unlock()
}

// Service fans one run out over every open deadline event and every
// audience member, deciding per user which channels fire today.
//
// Failure isolation is the governing principle: one bad event, user or
// channel never stops the sweep. Only the initial event listing aborts
// a run.
type Service struct {
	events   repository.EventRepository
	projects repository.ProjectRepository
	rules    repository.RuleRepository
	logs     repository.NotificationLogRepository
	engine   *rule.Engine
	senders  []notifier.Sender
	broker   messaging.Broker
	log      *logger.Logger
	metrics  *metrics.Metrics
	opts     Options

	// pairLocks serializes work per (user, event) inside this process;
	// the storage-level unique index covers racing processes. Entries
	// are reference-counted so an unlock cannot retire a mutex another
	// goroutine is still waiting on.
	locksMu   sync.Mutex
	pairLocks map[string]*pairLock

	runMu   sync.Mutex
	running bool
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(
	events repository.EventRepository,
	projects repository.ProjectRepository,
	rules repository.RuleRepository,
	logs repository.NotificationLogRepository,
	senders []notifier.Sender,
	broker messaging.Broker,
	log *logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &Service{
		events:    events,
		projects:  projects,
		rules:     rules,
		logs:      logs,
		engine:    rule.NewEngine(),
		senders:   senders,
		broker:    broker,
		log:       log,
		metrics:   m,
		opts:      opts,
		pairLocks: make(map[string]*pairLock),
	}
}

// Run performs one full notification sweep. Concurrent calls collapse:
// a run that starts while another is in flight returns immediately.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.runMu.Unlock()
	defer func() {
		s.runMu.Lock()
		s.running = false
		s.runMu.Unlock()
	}()

	started := time.Now()
	report := &Report{StartedAt: started}

	if s.metrics != nil {
		s.metrics.DispatcherRuns.Inc()
		defer func() {
			s.metrics.DispatcherRunDuration.Observe(time.Since(started).Seconds())
		}()
	}

	s.refreshSenders(ctx)

	events, err := s.events.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open events: %w", err)
	}
	report.Events = len(events)

	today := s.today()

	jobs := make(chan *model.DeadlineEvent)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range jobs {
				s.processEvent(ctx, event, today, report)
			}
		}()
	}

	for _, event := range events {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return report, ctx.Err()
		case jobs <- event:
		}
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(started).String()
	s.log.Info("dispatcher run finished",
		"events", report.Events,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"suppressed", report.Suppressed,
		"duration", report.Duration,
	)
	s.publishReport(ctx, report)

	return report, nil
}

// refreshSenders reloads sender configuration from the settings store.
// A failed refresh keeps the previous configuration; it never aborts
// the run.
func (s *Service) refreshSenders(ctx context.Context) {
	for _, sender := range s.senders {
		r, ok := sender.(notifier.Refresher)
		if !ok {
			continue
		}
		if err := r.Refresh(ctx); err != nil {
			s.log.Error(err, "sender refresh failed", "channel", sender.Channel())
		}
	}
}

func (s *Service) processEvent(ctx context.Context, event *model.DeadlineEvent, today time.Time, report *Report) {
	if s.metrics != nil {
		s.metrics.EventsProcessed.Inc()
	}

	due, err := event.ParseDueDate()
	if err != nil {
		// Not an error condition: the parsing pipeline legitimately
		// produces events without a usable date.
		s.log.Debug("event has no usable due date", "event_id", event.ID, "due_date", event.DueDate)
		s.skipEvent("unparsable_date")
		return
	}
	daysLeft := daysBetween(today, due)

	project, err := s.projects.GetForDocument(ctx, event.DocumentID)
	if err != nil {
		s.log.Error(err, "failed to resolve project", "event_id", event.ID)
		s.skipEvent("project_lookup")
		return
	}

	audience, err := s.projects.ListAudience(ctx, project.ID)
	if err != nil {
		s.log.Error(err, "failed to resolve audience", "project_id", project.ID)
		s.skipEvent("audience_lookup")
		return
	}

	reminder := &notifier.Reminder{Event: event, Project: project, DaysLeft: daysLeft}

	for _, user := range audience {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.processUser(ctx, user, reminder, today, report)
	}
}

func (s *Service) skipEvent(reason string) {
	if s.metrics != nil {
		s.metrics.EventsSkipped.WithLabelValues(reason).Inc()
	}
}

func (s *Service) processUser(ctx context.Context, user *model.Profile, reminder *notifier.Reminder, today time.Time, report *Report) {
	unlock := s.lockPair(user.ID, reminder.Event.ID)
	defer unlock()

	rules, err := s.rules.ListActiveForUser(ctx, user.ID)
	if err != nil {
		s.log.Error(err, "failed to load rules", "user_id", user.ID)
		return
	}

	decision := s.engine.Evaluate(rules, reminder.DaysLeft)
	if !decision.Notify {
		return
	}

	notified, err := s.logs.SentSince(ctx, user.ID, reminder.Event.ID, today)
	if err != nil {
		s.log.Error(err, "dedup check failed", "user_id", user.ID, "event_id", reminder.Event.ID)
		return
	}
	if notified {
		if s.metrics != nil {
			s.metrics.DedupSuppressed.Inc()
		}
		report.suppress()
		return
	}

	channels := decision.Channels
	if len(channels) == 0 && decision.Overdue {
		channels = defaultChannels
	}

	for _, channel := range channels {
		s.deliver(ctx, channel, user, reminder, today, report)
	}
}

// deliver runs one channel attempt and records its outcome in the
// ledger. Sender failures are data, never propagated errors.
func (s *Service) deliver(ctx context.Context, channel string, user *model.Profile, reminder *notifier.Reminder, today time.Time, report *Report) {
	sender := s.senderFor(channel)

	var result notifier.Result
	switch {
	case sender == nil:
		result = notifier.Skipped("no sender for channel")
	case !sender.CanSend(user):
		result = notifier.Skipped("channel unavailable for user")
	default:
		sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
		start := time.Now()
		result = sender.Send(sendCtx, user, reminder)
		cancel()
		if s.metrics != nil {
			s.metrics.SendDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
		}
	}

	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(channel, string(result.Outcome)).Inc()
	}
	report.add(result.Outcome)

	entry := &model.NotificationLog{
		ID:      uuid.New(),
		UserID:  user.ID,
		EventID: reminder.Event.ID,
		Channel: channel,
		Status:  result.Outcome,
		Message: reminder.PlainText(),
		SentOn:  today,
		SentAt:  time.Now(),
	}
	if result.Outcome != model.NotificationSent && result.Detail != "" {
		entry.ErrorMessage = &result.Detail
	}

	inserted, err := s.logs.Create(ctx, entry)
	if err != nil {
		s.log.Error(err, "failed to record notification", "user_id", user.ID, "event_id", reminder.Event.ID)
		return
	}
	if !inserted {
		// Another instance won the daily slot between our check and
		// our insert. The message may have gone out twice; the ledger
		// stays consistent.
		s.log.Warn("duplicate send detected at insert",
			"user_id", user.ID, "event_id", reminder.Event.ID, "channel", channel)
	}
}

func (s *Service) senderFor(channel string) notifier.Sender {
	for _, sender := range s.senders {
		if sender.Channel() == channel {
			return sender
		}
	}
	return nil
}

func (s *Service) lockPair(userID, eventID uuid.UUID) func() {
	key := userID.String() + ":" + eventID.String()

	s.locksMu.Lock()
	l := s.pairLocks[key]
	if l == nil {
		l = &pairLock{}
		s.pairLocks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.pairLocks, key)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) publishReport(ctx context.Context, report *Report) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{Type: "dispatcher_run", Payload: report}
	if err := s.broker.Publish(ctx, runTopic, msg); err != nil {
		s.log.Error(err, "failed to publish run report")
	}
}

// today returns midnight of the current day in the configured timezone,
// the boundary the daily dedup window opens at.
func (s *Service) today() time.Time {
	now := time.Now().In(s.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
}

// daysBetween counts whole calendar days from today to due. Both sides
// are normalized to UTC midnights so DST transitions cannot shift the
// count.
func daysBetween(today, due time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}
