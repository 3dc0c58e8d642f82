// Package scheduler drives the periodic processing cycle: fetch new
// messages, match rules, and dispatch executed rules to the executor.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/executor"
	"inbox-autopilot-go/internal/fetcher"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/replytracker"
)

// Store is the persistence surface the scheduler needs to run the
// pipeline.
type Store interface {
	executor.Store
	HasExecutedRule(ctx context.Context, userID, threadID, messageID string) (bool, error)
	CreateExecutedRule(ctx context.Context, exec *model.ExecutedRule) error
	ListPendingExecutedRules(ctx context.Context, limit int) ([]model.ExecutedRule, error)
	GetEnabledRules(ctx context.Context, userID string) ([]model.Rule, error)
}

// Scheduler manages the periodic email processing
type Scheduler struct {
	cron       *cron.Cron
	entryID    cron.EntryID
	config     *config.SchedulerConfig
	fetcher    fetcher.EmailFetcher
	store      Store
	selector   replytracker.Selector
	executor   *executor.Coordinator
	reconciler *replytracker.Reconciler
	metrics    *metrics.Metrics
	user       *model.User
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	isRunning  bool
	lastRun    time.Time
	mu         sync.RWMutex
}

// New creates a new scheduler
func New(cfg *config.SchedulerConfig, f fetcher.EmailFetcher, store Store, selector replytracker.Selector, exec *executor.Coordinator, reconciler *replytracker.Reconciler, m *metrics.Metrics, user *model.User) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		config:     cfg,
		fetcher:    f,
		store:      store,
		selector:   selector,
		executor:   exec,
		reconciler: reconciler,
		metrics:    m,
		user:       user,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.cron = cron.New(cron.WithSeconds())
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.ProcessCycle)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// Wait blocks until in-flight processing cycles drain.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// IsRunning reports whether the cron loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastRun returns when the last processing cycle started.
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// NextRun returns when the next processing cycle is scheduled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// ProcessCycle is the main processing function that runs periodically.
// It fetches new messages, turns matches into pending executed rules,
// then dispatches everything pending.
func (s *Scheduler) ProcessCycle() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping processing cycle")
		return
	}
	s.mu.RUnlock()

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	logrus.Info("Starting processing cycle")
	startTime := time.Now()

	emails, err := s.fetcher.FetchNewEmails(s.ctx)
	if err != nil {
		logrus.Errorf("Failed to fetch emails: %v", err)
		return
	}
	logrus.Infof("Fetched %d new emails", len(emails))

	for i := range emails {
		if err := s.intakeEmail(&emails[i]); err != nil {
			logrus.Errorf("Failed to process email %s: %v", emails[i].ID, err)
		}
	}

	if err := s.dispatchPending(emails); err != nil {
		logrus.Errorf("Failed to dispatch pending executions: %v", err)
	}

	s.metrics.ProcessingTime.Observe(time.Since(startTime).Seconds())
	logrus.Infof("Processing cycle completed in %v", time.Since(startTime))
}

// intakeEmail matches one fetched message against the user's rules and,
// on a match, snapshots the rule's actions into a new PENDING executed
// rule. A message that already has an executed rule is skipped, which
// keeps re-fetching idempotent.
func (s *Scheduler) intakeEmail(email *model.EmailMessage) error {
	select {
	case <-s.ctx.Done():
		return fmt.Errorf("context cancelled")
	default:
	}

	seen, err := s.store.HasExecutedRule(s.ctx, s.user.ID, email.ThreadID, email.ID)
	if err != nil {
		return fmt.Errorf("failed to check if email is processed: %w", err)
	}
	if seen {
		logrus.Debugf("Email %s already processed, skipping", email.ID)
		return nil
	}

	rules, err := s.store.GetEnabledRules(s.ctx, s.user.ID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	rule, err := s.selector.SelectMatchingRule(s.ctx, email, rules, s.user)
	if err != nil {
		return fmt.Errorf("rule selection failed: %w", err)
	}
	if rule == nil {
		logrus.Debugf("No matching rule for email %s", email.ID)
		return nil
	}

	exec := newExecutedRule(rule, s.user.ID, email)
	if err := s.store.CreateExecutedRule(s.ctx, exec); err != nil {
		return fmt.Errorf("failed to create executed rule: %w", err)
	}

	logrus.Infof("Matched email %s to rule %q (%d actions)", email.ID, rule.Name, len(exec.ActionItems))
	return nil
}

// dispatchPending fans pending executed rules out to the executor,
// bounded by MaxConcurrent. Ordering across records is not guaranteed;
// the claim makes duplicate dispatch harmless.
func (s *Scheduler) dispatchPending(fetched []model.EmailMessage) error {
	pending, err := s.store.ListPendingExecutedRules(s.ctx, 0)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	s.metrics.PendingExecutions.Set(float64(len(pending)))

	emailsByID := s.fetchEmailsFor(pending, fetched)

	sem := make(chan struct{}, s.config.MaxConcurrent)
	var wg sync.WaitGroup
	for i := range pending {
		exec := &pending[i]
		email, ok := emailsByID[exec.MessageID]
		if !ok {
			logrus.Warnf("No message content for executed rule %s, skipping", exec.ID)
			continue
		}

		isReplyTracking, err := s.isReplyTrackingRule(exec.RuleID)
		if err != nil {
			logrus.Errorf("Failed to resolve rule %s: %v", exec.RuleID, err)
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(exec *model.ExecutedRule, email *model.EmailMessage, isReplyTracking bool) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.executor.ExecuteRule(s.ctx, exec, email, s.user.Email, isReplyTracking); err != nil {
				logrus.Errorf("Failed to execute rule %s: %v", exec.ID, err)
			}
		}(exec, email, isReplyTracking)
	}
	wg.Wait()
	return nil
}

func (s *Scheduler) isReplyTrackingRule(ruleID string) (bool, error) {
	rules, err := s.store.GetEnabledRules(s.ctx, s.user.ID)
	if err != nil {
		return false, err
	}
	for _, rule := range rules {
		if rule.ID == ruleID {
			return rule.TrackReplies, nil
		}
	}
	return false, nil
}

// fetchEmailsFor maps pending executions to message content. This
// cycle's fetched messages cover the common case; stale records left
// over from an interrupted run are re-fetched by id when the fetcher
// supports it.
func (s *Scheduler) fetchEmailsFor(pending []model.ExecutedRule, fetched []model.EmailMessage) map[string]*model.EmailMessage {
	byID := make(map[string]*model.EmailMessage, len(pending))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}
	getter, ok := s.fetcher.(interface {
		FetchEmail(ctx context.Context, messageID string) (*model.EmailMessage, error)
	})
	for i := range pending {
		id := pending[i].MessageID
		if _, seen := byID[id]; seen {
			continue
		}
		if !ok {
			continue
		}
		email, err := getter.FetchEmail(s.ctx, id)
		if err != nil {
			logrus.Warnf("Failed to fetch message %s: %v", id, err)
			continue
		}
		byID[id] = email
	}
	return byID
}

// BackfillReplyTracking replays recent inbound messages through the
// reply-tracker's inbound handler. Used once when reply tracking is
// newly enabled; only tracker side effects run, never rule actions.
func (s *Scheduler) BackfillReplyTracking() {
	s.wg.Add(1)
	defer s.wg.Done()

	emails, err := s.fetcher.FetchNewEmails(s.ctx)
	if err != nil {
		logrus.Errorf("Reply tracking backfill: failed to fetch emails: %v", err)
		return
	}

	for i := range emails {
		if err := s.reconciler.HandleInboundReply(s.ctx, s.user, &emails[i]); err != nil {
			logrus.Errorf("Reply tracking backfill failed for message %s: %v", emails[i].ID, err)
		}
	}
	logrus.Infof("Reply tracking backfill completed for %d messages", len(emails))
}
