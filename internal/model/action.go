package model

// ActionType identifies one kind of side effect a rule can apply.
type ActionType string

const (
	ActionLabel     ActionType = "LABEL"
	ActionArchive   ActionType = "ARCHIVE"
	ActionForward   ActionType = "FORWARD"
	ActionReply     ActionType = "REPLY"
	ActionDraft     ActionType = "DRAFT"
	ActionSendEmail ActionType = "SEND_EMAIL"
	ActionMarkRead  ActionType = "MARK_READ"
	ActionMarkSpam  ActionType = "MARK_SPAM"
)

// ActionItem is one unit of work inside an ExecutedRule. Items are
// immutable once created; only the executor consumes them.
type ActionItem struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ExecutedRuleID string     `json:"executed_rule_id" gorm:"type:varchar(36);not null;index"`
	Position       int        `json:"position" gorm:"not null"`
	Type           ActionType `json:"type" gorm:"type:varchar(32);not null"`
	Label          string     `json:"label,omitempty" gorm:"type:varchar(255)"`
	To             string     `json:"to,omitempty" gorm:"type:varchar(255)"`
	Subject        string     `json:"subject,omitempty" gorm:"type:varchar(998)"`
	Content        string     `json:"content,omitempty" gorm:"type:text"`
}

// TableName specifies the table name for ActionItem
func (ActionItem) TableName() string {
	return "action_items"
}

// RuleAction is the action template attached to a Rule. Matching a rule
// copies its actions into ActionItems on the new ExecutedRule.
type RuleAction struct {
	ID       string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RuleID   string     `json:"rule_id" gorm:"type:varchar(36);not null;index"`
	Position int        `json:"position" gorm:"not null"`
	Type     ActionType `json:"type" gorm:"type:varchar(32);not null"`
	Label    string     `json:"label,omitempty" gorm:"type:varchar(255)"`
	To       string     `json:"to,omitempty" gorm:"type:varchar(255)"`
	Subject  string     `json:"subject,omitempty" gorm:"type:varchar(998)"`
	Content  string     `json:"content,omitempty" gorm:"type:text"`
}

// TableName specifies the table name for RuleAction
func (RuleAction) TableName() string {
	return "rule_actions"
}
