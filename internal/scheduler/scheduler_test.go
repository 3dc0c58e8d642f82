package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-autopilot-go/internal/classifier"
	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/executor"
	"inbox-autopilot-go/internal/labels"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/replytracker"
)

// one registry-backed metrics instance for the whole test binary
var testMetrics = metrics.NewMetrics()

// fakeFetcher returns a fixed message set.
type fakeFetcher struct {
	emails []model.EmailMessage
}

func (f *fakeFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	return f.emails, nil
}

func (f *fakeFetcher) Close() error { return nil }

// fakeStore is an in-memory Store covering both the scheduler pipeline
// and the reply tracker.
type fakeStore struct {
	mu       sync.Mutex
	rules    []model.Rule
	execs    map[string]*model.ExecutedRule
	trackers map[string]model.TrackerType // "thread/message" -> type
	marks    int
}

func newFakeStore(rules ...model.Rule) *fakeStore {
	return &fakeStore{
		rules:    rules,
		execs:    make(map[string]*model.ExecutedRule),
		trackers: make(map[string]model.TrackerType),
	}
}

func (s *fakeStore) ClaimForApplying(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok || exec.Status != model.StatusPending {
		return 0, nil
	}
	exec.Status = model.StatusApplying
	return 1, nil
}

func (s *fakeStore) SetStatus(ctx context.Context, id string, status model.ExecutedRuleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec, ok := s.execs[id]; ok {
		exec.Status = status
	}
	return nil
}

func (s *fakeStore) HasExecutedRule(ctx context.Context, userID, threadID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, exec := range s.execs {
		if exec.UserID == userID && exec.ThreadID == threadID && exec.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateExecutedRule(ctx context.Context, exec *model.ExecutedRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[exec.ID] = exec
	return nil
}

func (s *fakeStore) ListPendingExecutedRules(ctx context.Context, limit int) ([]model.ExecutedRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []model.ExecutedRule
	for _, exec := range s.execs {
		if exec.Status == model.StatusPending {
			pending = append(pending, *exec)
		}
	}
	return pending, nil
}

func (s *fakeStore) GetEnabledRules(ctx context.Context, userID string) ([]model.Rule, error) {
	var enabled []model.Rule
	for _, rule := range s.rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	return enabled, nil
}

func (s *fakeStore) MarkThreadNeedsReply(ctx context.Context, userID, threadID, messageID string, sentAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks++
	s.trackers[threadID+"/"+messageID] = model.TrackerNeedsReply
	return 0, nil
}

func (s *fakeStore) ReplyTrackingRule(ctx context.Context, userID string) (*model.Rule, error) {
	for i := range s.rules {
		if s.rules[i].TrackReplies && s.rules[i].Enabled {
			return &s.rules[i], nil
		}
	}
	return nil, nil
}

func (s *fakeStore) executedStatuses() []model.ExecutedRuleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var statuses []model.ExecutedRuleStatus
	for _, exec := range s.execs {
		statuses = append(statuses, exec.Status)
	}
	return statuses
}

// fakeRunner records action invocations.
type fakeRunner struct {
	mu    sync.Mutex
	calls []model.ActionType
}

func (r *fakeRunner) Run(ctx context.Context, email *model.EmailMessage, action model.ActionItem, userEmail string, exec *model.ExecutedRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, action.Type)
	return nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeLabels struct{}

func (fakeLabels) GetOrCreate(ctx context.Context, key labels.Key) (string, error) {
	return "label-" + string(key), nil
}
func (fakeLabels) GetOrCreateNamed(ctx context.Context, name string) (string, error) {
	return "label-" + name, nil
}
func (fakeLabels) AddToThread(ctx context.Context, threadID string, labelIDs ...string) error {
	return nil
}
func (fakeLabels) RemoveFromThread(ctx context.Context, threadID string, labelIDs ...string) error {
	return nil
}
func (fakeLabels) AddToMessage(ctx context.Context, messageID string, labelIDs ...string) error {
	return nil
}
func (fakeLabels) RemoveFromMessage(ctx context.Context, messageID string, labelIDs ...string) error {
	return nil
}

func quietLog(component string) *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log).WithField("component", component)
}

func newTestScheduler(t *testing.T, store *fakeStore, f *fakeFetcher, runner *fakeRunner) *Scheduler {
	t.Helper()
	selector := classifier.NewKeywordSelector(quietLog("classifier"))
	reconciler := replytracker.New(store, fakeLabels{}, selector, nil, quietLog("reply-tracker"))
	coordinator := executor.New(store, runner, fakeLabels{}, reconciler, nil, quietLog("executor"))
	cfg := &config.SchedulerConfig{IntervalMinutes: 5, MaxConcurrent: 2}
	user := &model.User{ID: "user-1", Email: "me@example.com"}
	return New(cfg, f, store, selector, coordinator, reconciler, testMetrics, user)
}

func TestSchedulerStartStopRestart(t *testing.T) {
	s := newTestScheduler(t, newFakeStore(), &fakeFetcher{}, &fakeRunner{})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())

	// double start is rejected
	assert.Error(t, s.Start())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.NextRun().IsZero())

	// stopping twice is harmless
	require.NoError(t, s.Stop())

	// restart recreates the cancelled context
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Stop())
}

func TestProcessCycleMatchesAndExecutes(t *testing.T) {
	rule := model.Rule{
		ID:      "rule-1",
		UserID:  "user-1",
		Name:    "File invoices",
		Keyword: "Invoice",
		Enabled: true,
		Actions: []model.RuleAction{
			{ID: "a1", RuleID: "rule-1", Position: 0, Type: model.ActionLabel, Label: "Invoices"},
			{ID: "a2", RuleID: "rule-1", Position: 1, Type: model.ActionArchive},
		},
	}
	store := newFakeStore(rule)
	f := &fakeFetcher{emails: []model.EmailMessage{{
		ID:       "msg-1",
		ThreadID: "thread-1",
		Subject:  "Invoice - March",
	}}}
	runner := &fakeRunner{}
	s := newTestScheduler(t, store, f, runner)

	require.NoError(t, s.Start())
	defer s.Stop()

	s.ProcessCycle()

	assert.Equal(t, []model.ExecutedRuleStatus{model.StatusApplied}, store.executedStatuses())
	assert.Equal(t, []model.ActionType{model.ActionLabel, model.ActionArchive}, runner.calls)
}

func TestProcessCycleIsIdempotentAcrossCycles(t *testing.T) {
	rule := model.Rule{
		ID:      "rule-1",
		UserID:  "user-1",
		Name:    "File invoices",
		Keyword: "Invoice",
		Enabled: true,
		Actions: []model.RuleAction{{ID: "a1", RuleID: "rule-1", Type: model.ActionArchive}},
	}
	store := newFakeStore(rule)
	f := &fakeFetcher{emails: []model.EmailMessage{{
		ID:       "msg-1",
		ThreadID: "thread-1",
		Subject:  "Invoice - March",
	}}}
	runner := &fakeRunner{}
	s := newTestScheduler(t, store, f, runner)

	require.NoError(t, s.Start())
	defer s.Stop()

	// the same message arriving in two consecutive fetches is executed once
	s.ProcessCycle()
	s.ProcessCycle()

	assert.Len(t, store.executedStatuses(), 1)
	assert.Equal(t, 1, runner.callCount())
}

func TestProcessCycleSkipsNonMatchingEmails(t *testing.T) {
	rule := model.Rule{ID: "rule-1", UserID: "user-1", Keyword: "Invoice", Enabled: true}
	store := newFakeStore(rule)
	f := &fakeFetcher{emails: []model.EmailMessage{{
		ID:       "msg-1",
		ThreadID: "thread-1",
		Subject:  "Lunch on Friday?",
	}}}
	runner := &fakeRunner{}
	s := newTestScheduler(t, store, f, runner)

	require.NoError(t, s.Start())
	defer s.Stop()

	s.ProcessCycle()

	assert.Empty(t, store.executedStatuses())
	assert.Equal(t, 0, runner.callCount())
}

func TestProcessCycleReplyTrackingSkipsLabelAndMarks(t *testing.T) {
	rule := model.Rule{
		ID:           "rule-1",
		UserID:       "user-1",
		Name:         "Track replies",
		Instructions: "track replies to my threads",
		TrackReplies: true,
		Enabled:      true,
		Actions:      []model.RuleAction{{ID: "a1", RuleID: "rule-1", Type: model.ActionLabel, Label: "To Reply"}},
	}
	store := newFakeStore(rule)
	f := &fakeFetcher{emails: []model.EmailMessage{{
		ID:       "msg-1",
		ThreadID: "thread-1",
		Subject:  "Re: proposal",
		Headers:  map[string]string{"In-Reply-To": "<orig@example.com>"},
	}}}
	runner := &fakeRunner{}
	s := newTestScheduler(t, store, f, runner)

	require.NoError(t, s.Start())
	defer s.Stop()

	s.ProcessCycle()

	// the LABEL action is owned by the tracker, not the runner
	assert.Equal(t, 0, runner.callCount())
	assert.Equal(t, []model.ExecutedRuleStatus{model.StatusApplied}, store.executedStatuses())
	assert.Equal(t, model.TrackerNeedsReply, store.trackers["thread-1/msg-1"])
}

func TestBackfillReplyTracking(t *testing.T) {
	rule := model.Rule{
		ID:           "rule-1",
		UserID:       "user-1",
		Instructions: "track replies to my threads",
		TrackReplies: true,
		Enabled:      true,
	}
	store := newFakeStore(rule)
	f := &fakeFetcher{emails: []model.EmailMessage{
		{
			ID:       "reply-1",
			ThreadID: "thread-1",
			Subject:  "Re: proposal",
			Headers:  map[string]string{"In-Reply-To": "<orig@example.com>"},
		},
		{
			ID:       "fresh-1",
			ThreadID: "thread-2",
			Subject:  "Newsletter - Weekly digest",
		},
	}}
	s := newTestScheduler(t, store, f, &fakeRunner{})

	s.BackfillReplyTracking()

	// only the reply was marked; the fresh message was left alone
	assert.Equal(t, 1, store.marks)
	assert.Equal(t, model.TrackerNeedsReply, store.trackers["thread-1/reply-1"])
}
