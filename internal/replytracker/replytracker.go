// Package replytracker maintains the per-thread awaiting-reply /
// needs-reply state machine and its two mutually exclusive labels.
package replytracker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/labels"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/parallel"
)

// Store is the tracker persistence surface the reconciler needs.
type Store interface {
	// MarkThreadNeedsReply resolves the thread's unresolved AWAITING
	// trackers and upserts a NEEDS_REPLY tracker in one transaction,
	// returning the number of trackers resolved.
	MarkThreadNeedsReply(ctx context.Context, userID, threadID, messageID string, sentAt time.Time) (int64, error)
	// ReplyTrackingRule returns the user's designated reply-tracking rule,
	// or nil when none is configured.
	ReplyTrackingRule(ctx context.Context, userID string) (*model.Rule, error)
}

// Selector is the rule-selection step re-run by HandleInboundReply against
// a singleton candidate set.
type Selector interface {
	SelectMatchingRule(ctx context.Context, email *model.EmailMessage, rules []model.Rule, user *model.User) (*model.Rule, error)
}

// Reconciler applies reply-tracking transitions. All tracker mutations are
// set-based on the thread, so interleaved executions for the same thread
// converge instead of corrupting each other.
type Reconciler struct {
	store    Store
	labels   labels.Provider
	selector Selector
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

func New(store Store, labelProvider labels.Provider, selector Selector, m *metrics.Metrics, log *logrus.Entry) *Reconciler {
	return &Reconciler{
		store:    store,
		labels:   labelProvider,
		selector: selector,
		metrics:  m,
		log:      log,
	}
}

// MarkNeedsReply records that an inbound reply closed out the thread's
// awaiting state. The database transaction, the awaiting-reply label
// removal and the needs-reply label addition are dispatched together and
// settled independently: any subset may fail without blocking or rolling
// back the others. Failures are logged with identifying context and never
// retried here. Only label-id resolution, which everything after depends
// on, returns an error.
func (r *Reconciler) MarkNeedsReply(ctx context.Context, userID, threadID, messageID string, sentAt time.Time) error {
	awaitingLabelID, err := r.labels.GetOrCreate(ctx, labels.KeyAwaitingReply)
	if err != nil {
		return fmt.Errorf("failed to resolve awaiting-reply label: %w", err)
	}
	needsReplyLabelID, err := r.labels.GetOrCreate(ctx, labels.KeyNeedsReply)
	if err != nil {
		return fmt.Errorf("failed to resolve needs-reply label: %w", err)
	}

	var resolved int64
	results := parallel.Settle(
		func() error {
			n, err := r.store.MarkThreadNeedsReply(ctx, userID, threadID, messageID, sentAt)
			resolved = n
			return err
		},
		func() error { return r.labels.RemoveFromThread(ctx, threadID, awaitingLabelID) },
		func() error { return r.labels.AddToMessage(ctx, messageID, needsReplyLabelID) },
	)

	log := r.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"thread_id":  threadID,
		"message_id": messageID,
	})
	if results[0] != nil {
		log.WithError(results[0]).Error("Failed to mark needs reply")
	} else if r.metrics != nil {
		r.metrics.TrackersResolved.Add(float64(resolved))
		r.metrics.NeedsReplyMarked.Inc()
	}
	if results[1] != nil {
		if r.metrics != nil {
			r.metrics.LabelFailures.Inc()
		}
		log.WithError(results[1]).Error("Failed to remove awaiting reply label")
	}
	if results[2] != nil {
		if r.metrics != nil {
			r.metrics.LabelFailures.Inc()
		}
		log.WithError(results[2]).Error("Failed to label needs reply")
	}
	return nil
}

// HandleInboundReply is used when reply tracking is being newly enabled
// for a user; normal rule processing covers inbound replies otherwise.
// It re-runs rule selection against only the reply-tracking rule and, if
// selected, triggers the tracker side effect. Other actions are never run
// here: full processing for this message may happen independently, and
// running them twice would double-handle the email.
func (r *Reconciler) HandleInboundReply(ctx context.Context, user *model.User, message *model.EmailMessage) error {
	rule, err := r.store.ReplyTrackingRule(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to look up reply tracking rule: %w", err)
	}
	if rule == nil || rule.Instructions == "" {
		return nil
	}

	selected, err := r.selector.SelectMatchingRule(ctx, message, []model.Rule{*rule}, user)
	if err != nil {
		return fmt.Errorf("rule selection failed: %w", err)
	}
	if selected == nil || selected.ID != rule.ID {
		return nil
	}

	return r.MarkNeedsReply(ctx, user.ID, message.ThreadID, message.ID, message.InternalDate)
}
