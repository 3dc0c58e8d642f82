package model

import (
	"time"

	"gorm.io/gorm"
)

// Rule is a user-configured automation policy: a matching condition plus
// an ordered list of actions to apply to matching messages.
type Rule struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string         `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null"`
	Keyword      string         `json:"keyword" gorm:"type:varchar(255);index"`
	Instructions string         `json:"instructions" gorm:"type:text"`
	TrackReplies bool           `json:"track_replies" gorm:"not null;default:false"`
	Enabled      bool           `json:"enabled" gorm:"not null;default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Actions []RuleAction `json:"actions" gorm:"foreignKey:RuleID"`
}

// TableName specifies the table name for Rule
func (Rule) TableName() string {
	return "rules"
}

// User is a mail account the service automates.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	About     string    `json:"about" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
