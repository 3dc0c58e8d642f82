package model

import (
	"time"
)

// ExecutedRuleStatus is the lifecycle state of an ExecutedRule.
type ExecutedRuleStatus string

const (
	StatusPending  ExecutedRuleStatus = "PENDING"
	StatusApplying ExecutedRuleStatus = "APPLYING"
	StatusApplied  ExecutedRuleStatus = "APPLIED"
	StatusError    ExecutedRuleStatus = "ERROR"
)

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. The only legal paths are
// PENDING -> APPLYING -> {APPLIED, ERROR}; terminal states never move.
func (s ExecutedRuleStatus) CanTransitionTo(next ExecutedRuleStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApplying
	case StatusApplying:
		return next == StatusApplied || next == StatusError
	default:
		return false
	}
}

// Terminal reports whether the status is an end state.
func (s ExecutedRuleStatus) Terminal() bool {
	return s == StatusApplied || s == StatusError
}

// ExecutedRule records one decision to apply a rule to one email.
// It is created PENDING when a rule matches a message and is mutated
// only by the executor; records are never deleted here.
type ExecutedRule struct {
	ID        string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RuleID    string             `json:"rule_id" gorm:"type:varchar(36);not null;index"`
	UserID    string             `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_executed_user_thread_message"`
	ThreadID  string             `json:"thread_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_executed_user_thread_message"`
	MessageID string             `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_executed_user_thread_message"`
	Status    ExecutedRuleStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	// ActionItems is the ordered action list snapshot taken from the rule
	// at match time. Position is the execution order.
	ActionItems []ActionItem `json:"action_items" gorm:"foreignKey:ExecutedRuleID"`
}

// TableName specifies the table name for ExecutedRule
func (ExecutedRule) TableName() string {
	return "executed_rules"
}
