// Package classifier selects which rule, if any, applies to a message.
package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/model"
)

// KeywordSelector matches rules on a subject keyword, with reply
// detection for reply-tracking rules. It is the deterministic stand-in
// for whatever selection step decides rule applicability upstream.
type KeywordSelector struct {
	log *logrus.Entry
}

func NewKeywordSelector(log *logrus.Entry) *KeywordSelector {
	return &KeywordSelector{log: log}
}

var subjectPattern = regexp.MustCompile(`^([^-]+)\s*-\s*(.+)$`)

// SelectMatchingRule returns the first candidate rule that matches the
// message, or nil when none does. Candidates are checked in order: a
// reply-tracking rule matches any reply; other rules match on keyword
// (exact, then case-insensitive, then substring).
func (s *KeywordSelector) SelectMatchingRule(ctx context.Context, email *model.EmailMessage, rules []model.Rule, user *model.User) (*model.Rule, error) {
	keyword := ExtractKeyword(email.Subject)

	for pass := 0; pass < 3; pass++ {
		for i := range rules {
			rule := &rules[i]
			if rule.TrackReplies {
				if pass == 0 && email.IsReply() {
					s.log.WithFields(logrus.Fields{
						"rule_id": rule.ID,
						"subject": email.Subject,
					}).Debug("Reply-tracking rule matched inbound reply")
					return rule, nil
				}
				continue
			}
			if rule.Keyword == "" {
				continue
			}
			if matchesPass(pass, rule.Keyword, keyword) {
				s.log.WithFields(logrus.Fields{
					"rule_id": rule.ID,
					"keyword": keyword,
				}).Debug("Rule matched keyword")
				return rule, nil
			}
		}
	}
	return nil, nil
}

func matchesPass(pass int, ruleKeyword, keyword string) bool {
	if keyword == "" {
		return false
	}
	switch pass {
	case 0:
		return ruleKeyword == keyword
	case 1:
		return strings.EqualFold(ruleKeyword, keyword)
	default:
		return strings.Contains(strings.ToLower(ruleKeyword), strings.ToLower(keyword))
	}
}

// ExtractKeyword pulls the routing keyword out of a subject line.
// Expected format: "<keyword> - <rest>", falling back to the first word.
func ExtractKeyword(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}

	matches := subjectPattern.FindStringSubmatch(subject)
	if len(matches) < 3 {
		words := strings.Fields(subject)
		if len(words) > 0 {
			return strings.TrimSpace(words[0])
		}
		return ""
	}
	return strings.TrimSpace(matches[1])
}
