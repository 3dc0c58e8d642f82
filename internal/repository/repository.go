package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inbox-autopilot-go/internal/model"
)

// Repository wraps all database access for rules, executed rules and
// thread trackers.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ClaimForApplying attempts the conditional PENDING -> APPLYING transition
// for one executed rule. The WHERE clause carries the expected prior status,
// so concurrent callers race on a single compare-and-swap UPDATE: the
// returned count is 1 for the winner and 0 for everyone else (already
// claimed, already terminal, or record absent).
func (r *Repository) ClaimForApplying(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ExecutedRule{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Update("status", model.StatusApplying)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to claim executed rule %s: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}

// SetStatus writes an executed rule status unconditionally. The claim is
// assumed to be held; legal transitions are the caller's responsibility.
func (r *Repository) SetStatus(ctx context.Context, id string, status model.ExecutedRuleStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.ExecutedRule{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set executed rule %s status to %s: %w", id, status, result.Error)
	}
	return nil
}

// CreateExecutedRule persists a new PENDING executed rule with its
// action item snapshot.
func (r *Repository) CreateExecutedRule(ctx context.Context, exec *model.ExecutedRule) error {
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		return fmt.Errorf("failed to create executed rule: %w", err)
	}
	return nil
}

// GetExecutedRule loads one executed rule with its action items in
// execution order.
func (r *Repository) GetExecutedRule(ctx context.Context, id string) (*model.ExecutedRule, error) {
	var exec model.ExecutedRule
	err := r.db.WithContext(ctx).
		Preload("ActionItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&exec, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get executed rule %s: %w", id, err)
	}
	return &exec, nil
}

// ListExecutedRules returns executed rules, optionally filtered by status,
// newest first.
func (r *Repository) ListExecutedRules(ctx context.Context, status model.ExecutedRuleStatus, limit int) ([]model.ExecutedRule, error) {
	var execs []model.ExecutedRule
	q := r.db.WithContext(ctx).
		Preload("ActionItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("failed to list executed rules: %w", err)
	}
	return execs, nil
}

// ListPendingExecutedRules returns PENDING executed rules in creation
// order with their action items, for the dispatcher.
func (r *Repository) ListPendingExecutedRules(ctx context.Context, limit int) ([]model.ExecutedRule, error) {
	var execs []model.ExecutedRule
	q := r.db.WithContext(ctx).
		Preload("ActionItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("status = ?", model.StatusPending).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending executed rules: %w", err)
	}
	return execs, nil
}

// HasExecutedRule reports whether the message was already matched to a
// rule for this user, which makes re-processing a fetched message a no-op.
func (r *Repository) HasExecutedRule(ctx context.Context, userID, threadID, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ExecutedRule{}).
		Where("user_id = ? AND thread_id = ? AND message_id = ?", userID, threadID, messageID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("database error checking executed rule: %w", err)
	}
	return count > 0, nil
}

// MarkThreadNeedsReply flips the thread's reply-tracking state in a single
// transaction: every unresolved AWAITING tracker for (userID, threadID) is
// resolved in bulk, and a NEEDS_REPLY tracker is inserted on the natural
// key with first-write-wins semantics (an existing row is left untouched).
// It returns the number of AWAITING trackers resolved.
func (r *Repository) MarkThreadNeedsReply(ctx context.Context, userID, threadID, messageID string, sentAt time.Time) (int64, error) {
	var resolved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ThreadTracker{}).
			Where("user_id = ? AND thread_id = ? AND type = ? AND resolved = ?",
				userID, threadID, model.TrackerAwaiting, false).
			Update("resolved", true)
		if result.Error != nil {
			return fmt.Errorf("failed to resolve awaiting trackers: %w", result.Error)
		}
		resolved = result.RowsAffected

		tracker := model.ThreadTracker{
			ID:        uuid.NewString(),
			UserID:    userID,
			ThreadID:  threadID,
			MessageID: messageID,
			Type:      model.TrackerNeedsReply,
			Resolved:  false,
			SentAt:    sentAt,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "thread_id"}, {Name: "message_id"},
			},
			DoNothing: true,
		}).Create(&tracker).Error
		if err != nil {
			return fmt.Errorf("failed to upsert needs-reply tracker: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return resolved, nil
}

// ListTrackers returns thread trackers, optionally filtered by type and
// resolution state, newest first.
func (r *Repository) ListTrackers(ctx context.Context, userID string, trackerType model.TrackerType, resolved *bool, limit int) ([]model.ThreadTracker, error) {
	var trackers []model.ThreadTracker
	q := r.db.WithContext(ctx).Order("sent_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if trackerType != "" {
		q = q.Where("type = ?", trackerType)
	}
	if resolved != nil {
		q = q.Where("resolved = ?", *resolved)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trackers).Error; err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}
	return trackers, nil
}

// ReplyTrackingRule returns the user's designated reply-tracking rule,
// or nil when reply tracking is not configured.
func (r *Repository) ReplyTrackingRule(ctx context.Context, userID string) (*model.Rule, error) {
	var rule model.Rule
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ? AND track_replies = ? AND enabled = ?", userID, true, true).
		First(&rule).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reply tracking rule: %w", err)
	}
	return &rule, nil
}

// GetEnabledRules returns all enabled rules for a user with their action
// templates in order.
func (r *Repository) GetEnabledRules(ctx context.Context, userID string) ([]model.Rule, error) {
	var rules []model.Rule
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ? AND enabled = ?", userID, true).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled rules: %w", err)
	}
	return rules, nil
}

// EnsureUser returns the user row for an email address, creating it on
// first use.
func (r *Repository) EnsureUser(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("database error looking up user: %w", err)
	}
	user = model.User{ID: uuid.NewString(), Email: email}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}
