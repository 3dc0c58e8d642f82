package classifier

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-autopilot-go/internal/model"
)

func testSelector() *KeywordSelector {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewKeywordSelector(logrus.NewEntry(log))
}

func TestExtractKeyword(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		expected string
	}{
		{"keyword with dash separator", "Newsletter - Weekly digest", "Newsletter"},
		{"keyword with extra spaces", "  Invoice  -  March 2024  ", "Invoice"},
		{"no separator falls back to first word", "Invoice overdue notice", "Invoice"},
		{"single word", "Receipt", "Receipt"},
		{"empty subject", "", ""},
		{"whitespace only", "   ", ""},
		{"dash without right side", "Invoice -", "Invoice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractKeyword(tt.subject))
		})
	}
}

func TestSelectMatchingRuleExactKeyword(t *testing.T) {
	rules := []model.Rule{
		{ID: "r1", Keyword: "Invoice"},
		{ID: "r2", Keyword: "Newsletter"},
	}
	email := &model.EmailMessage{Subject: "Newsletter - Weekly digest"}

	selected, err := testSelector().SelectMatchingRule(context.Background(), email, rules, nil)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "r2", selected.ID)
}

func TestSelectMatchingRuleCaseInsensitiveFallback(t *testing.T) {
	rules := []model.Rule{{ID: "r1", Keyword: "Invoice"}}
	email := &model.EmailMessage{Subject: "INVOICE - March"}

	selected, err := testSelector().SelectMatchingRule(context.Background(), email, rules, nil)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "r1", selected.ID)
}

func TestSelectMatchingRuleSubstringFallback(t *testing.T) {
	rules := []model.Rule{{ID: "r1", Keyword: "Monthly Invoice"}}
	email := &model.EmailMessage{Subject: "invoice - March"}

	selected, err := testSelector().SelectMatchingRule(context.Background(), email, rules, nil)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "r1", selected.ID)
}

func TestSelectMatchingRuleExactBeatsSubstring(t *testing.T) {
	rules := []model.Rule{
		{ID: "broad", Keyword: "Invoice Reminder"},
		{ID: "exact", Keyword: "Invoice"},
	}
	email := &model.EmailMessage{Subject: "Invoice - March"}

	selected, err := testSelector().SelectMatchingRule(context.Background(), email, rules, nil)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "exact", selected.ID)
}

func TestSelectMatchingRuleNoMatch(t *testing.T) {
	rules := []model.Rule{{ID: "r1", Keyword: "Invoice"}}
	email := &model.EmailMessage{Subject: "Lunch on Friday?"}

	selected, err := testSelector().SelectMatchingRule(context.Background(), email, rules, nil)
	require.NoError(t, err)
	assert.Nil(t, selected)
}

func TestSelectMatchingRuleReplyTracking(t *testing.T) {
	rules := []model.Rule{
		{ID: "tracker", TrackReplies: true, Instructions: "track replies"},
		{ID: "keyword", Keyword: "Invoice"},
	}

	reply := &model.EmailMessage{
		Subject: "Re: Invoice - March",
		Headers: map[string]string{"In-Reply-To": "<orig@example.com>"},
	}
	selected, err := testSelector().SelectMatchingRule(context.Background(), reply, rules, nil)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "tracker", selected.ID)

	// a fresh message never matches the reply-tracking rule
	fresh := &model.EmailMessage{Subject: "Invoice - March"}
	selected, err = testSelector().SelectMatchingRule(context.Background(), fresh, rules, nil)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "keyword", selected.ID)
}

func TestSelectMatchingRuleSkipsEmptyKeyword(t *testing.T) {
	rules := []model.Rule{{ID: "r1", Keyword: ""}}
	email := &model.EmailMessage{Subject: "anything"}

	selected, err := testSelector().SelectMatchingRule(context.Background(), email, rules, nil)
	require.NoError(t, err)
	assert.Nil(t, selected)
}
