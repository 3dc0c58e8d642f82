package model

import (
	"time"

	"gorm.io/gorm"
)

// TrackerType distinguishes the two reply-tracking states of a thread.
type TrackerType string

const (
	// TrackerAwaiting marks a thread where the user sent a message and is
	// waiting on the other side.
	TrackerAwaiting TrackerType = "AWAITING"
	// TrackerNeedsReply marks a thread where an inbound reply arrived and
	// the user owes a response.
	TrackerNeedsReply TrackerType = "NEEDS_REPLY"
)

// ThreadTracker is the reply-tracking record for one message in a thread.
// (UserID, ThreadID, MessageID) is a natural key: at most one tracker per
// message per user per thread. Resolved only ever flips false -> true;
// a resolved tracker is a historical record.
type ThreadTracker struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string         `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_tracker_user_thread_message"`
	ThreadID  string         `json:"thread_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_tracker_user_thread_message"`
	MessageID string         `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_tracker_user_thread_message"`
	Type      TrackerType    `json:"type" gorm:"type:varchar(16);not null;index"`
	Resolved  bool           `json:"resolved" gorm:"not null;default:false;index"`
	SentAt    time.Time      `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ThreadTracker
func (ThreadTracker) TableName() string {
	return "thread_trackers"
}
