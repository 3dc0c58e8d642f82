package scheduler

import (
	"github.com/google/uuid"

	"inbox-autopilot-go/internal/model"
)

// newExecutedRule snapshots a matched rule's action templates into a
// PENDING executed rule for one message. The snapshot keeps execution
// stable even if the rule is edited before dispatch.
func newExecutedRule(rule *model.Rule, userID string, email *model.EmailMessage) *model.ExecutedRule {
	exec := &model.ExecutedRule{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		UserID:    userID,
		ThreadID:  email.ThreadID,
		MessageID: email.ID,
		Status:    model.StatusPending,
	}
	for i, action := range rule.Actions {
		exec.ActionItems = append(exec.ActionItems, model.ActionItem{
			ID:             uuid.NewString(),
			ExecutedRuleID: exec.ID,
			Position:       i,
			Type:           action.Type,
			Label:          action.Label,
			To:             action.To,
			Subject:        action.Subject,
			Content:        action.Content,
		})
	}
	return exec
}
