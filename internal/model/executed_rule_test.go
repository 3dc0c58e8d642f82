package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutedRuleStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ExecutedRuleStatus
		to      ExecutedRuleStatus
		allowed bool
	}{
		{"pending to applying", StatusPending, StatusApplying, true},
		{"pending to applied skips claim", StatusPending, StatusApplied, false},
		{"pending to error skips claim", StatusPending, StatusError, false},
		{"applying to applied", StatusApplying, StatusApplied, true},
		{"applying to error", StatusApplying, StatusError, true},
		{"applying back to pending", StatusApplying, StatusPending, false},
		{"applied is terminal", StatusApplied, StatusApplying, false},
		{"applied never errors", StatusApplied, StatusError, false},
		{"error is terminal", StatusError, StatusApplying, false},
		{"error never applies", StatusError, StatusApplied, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestExecutedRuleStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApplying.Terminal())
	assert.True(t, StatusApplied.Terminal())
	assert.True(t, StatusError.Terminal())
}
