// Package executor owns the lifecycle of one executed rule: claim, run
// the action list in order, record terminal status, label the thread.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/actions"
	"inbox-autopilot-go/internal/labels"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/parallel"
)

// Store is the executed-rule persistence surface the coordinator needs.
type Store interface {
	// ClaimForApplying performs the conditional PENDING -> APPLYING
	// transition and reports how many rows matched (0 or 1).
	ClaimForApplying(ctx context.Context, id string) (int64, error)
	// SetStatus writes a status unconditionally; the claim is already held.
	SetStatus(ctx context.Context, id string, status model.ExecutedRuleStatus) error
}

// ReplyTracker receives the delegated reply-tracking side effect when the
// executed rule is the user's reply-tracking rule.
type ReplyTracker interface {
	MarkNeedsReply(ctx context.Context, userID, threadID, messageID string, sentAt time.Time) error
}

// Coordinator executes one claimed rule at a time. Instances are safe for
// concurrent use across distinct executed rules; the claim is the only
// serialization point for a given record.
type Coordinator struct {
	store   Store
	runner  actions.Runner
	labels  labels.Provider
	tracker ReplyTracker
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func New(store Store, runner actions.Runner, labelProvider labels.Provider, tracker ReplyTracker, m *metrics.Metrics, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		store:   store,
		runner:  runner,
		labels:  labelProvider,
		tracker: tracker,
		metrics: m,
		log:     log,
	}
}

// ExecuteRule claims the executed rule and applies its action list in
// order. Concurrent calls for the same record race on the claim; exactly
// one proceeds, the rest return immediately with no side effects.
//
// Only an action failure crosses this boundary as an error (after the
// record is marked ERROR). Finalization failures — the APPLIED status
// write and the acted-label attachment — are independent, collected
// separately and logged; the actions already ran, so the record is never
// re-queued over degraded bookkeeping.
func (c *Coordinator) ExecuteRule(ctx context.Context, exec *model.ExecutedRule, email *model.EmailMessage, userEmail string, isReplyTrackingRule bool) error {
	log := c.log.WithFields(logrus.Fields{
		"user_id":          exec.UserID,
		"executed_rule_id": exec.ID,
		"rule_id":          exec.RuleID,
		"reply_tracking":   isReplyTrackingRule,
	})
	log.Info("Executing rule")

	claimed, err := c.store.ClaimForApplying(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("failed to claim executed rule: %w", err)
	}
	if claimed == 0 {
		log.Info("Executed rule is not pending or does not exist")
		if c.metrics != nil {
			c.metrics.ClaimMisses.Inc()
		}
		return nil
	}
	if c.metrics != nil {
		c.metrics.ExecutionsClaimed.Inc()
	}

	for _, action := range exec.ActionItems {
		// The reconciler owns labeling for the reply-tracking rule; running
		// the rule's own LABEL action too would emit conflicting labels.
		if isReplyTrackingRule && action.Type == model.ActionLabel {
			continue
		}
		if err := c.runner.Run(ctx, email, action, userEmail, exec); err != nil {
			if c.metrics != nil {
				c.metrics.ActionFailures.Inc()
				c.metrics.ExecutionsErrored.Inc()
			}
			if serr := c.store.SetStatus(ctx, exec.ID, model.StatusError); serr != nil {
				log.WithError(serr).Error("Failed to record error status")
			}
			return fmt.Errorf("action %s failed: %w", action.Type, err)
		}
	}

	if isReplyTrackingRule {
		if err := c.tracker.MarkNeedsReply(ctx, exec.UserID, exec.ThreadID, exec.MessageID, email.InternalDate); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"thread_id":  exec.ThreadID,
				"message_id": exec.MessageID,
			}).Error("Failed to update reply tracker")
		}
	}

	results := parallel.Settle(
		func() error { return c.store.SetStatus(ctx, exec.ID, model.StatusApplied) },
		func() error { return c.labelActed(ctx, exec.ThreadID) },
	)
	if results[0] != nil {
		log.WithError(results[0]).Error("Failed to mark executed rule applied")
	}
	if results[1] != nil {
		if c.metrics != nil {
			c.metrics.LabelFailures.Inc()
		}
		log.WithError(results[1]).WithField("thread_id", exec.ThreadID).Error("Failed to label thread as acted")
	}
	if c.metrics != nil {
		c.metrics.ExecutionsApplied.Inc()
	}
	return nil
}

// labelActed attaches the well-known acted label to the thread so the
// user can see the service touched it.
func (c *Coordinator) labelActed(ctx context.Context, threadID string) error {
	id, err := c.labels.GetOrCreate(ctx, labels.KeyActed)
	if err != nil {
		return err
	}
	return c.labels.AddToThread(ctx, threadID, id)
}
