// Package actions executes individual rule actions against the mail
// provider.
package actions

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"

	"inbox-autopilot-go/internal/labels"
	"inbox-autopilot-go/internal/model"
)

// Runner executes one action item. Implementations may fail; the executor
// treats the first failure as fatal for the invocation.
type Runner interface {
	Run(ctx context.Context, email *model.EmailMessage, action model.ActionItem, userEmail string, exec *model.ExecutedRule) error
}

// GmailRunner applies actions through the Gmail API.
type GmailRunner struct {
	service *gmail.Service
	labels  labels.Provider
	log     *logrus.Entry
}

func NewGmailRunner(service *gmail.Service, labelProvider labels.Provider, log *logrus.Entry) *GmailRunner {
	return &GmailRunner{
		service: service,
		labels:  labelProvider,
		log:     log,
	}
}

// Run dispatches a single action item.
func (r *GmailRunner) Run(ctx context.Context, email *model.EmailMessage, action model.ActionItem, userEmail string, exec *model.ExecutedRule) error {
	r.log.WithFields(logrus.Fields{
		"action":           action.Type,
		"executed_rule_id": exec.ID,
		"thread_id":        exec.ThreadID,
	}).Debug("Running action")

	switch action.Type {
	case model.ActionLabel:
		return r.label(ctx, exec.ThreadID, action.Label)
	case model.ActionArchive:
		return r.labels.RemoveFromThread(ctx, exec.ThreadID, "INBOX")
	case model.ActionMarkRead:
		return r.labels.RemoveFromMessage(ctx, exec.MessageID, "UNREAD")
	case model.ActionMarkSpam:
		return r.labels.AddToThread(ctx, exec.ThreadID, "SPAM")
	case model.ActionForward:
		raw, err := buildForward(email, userEmail, action.To, action.Content)
		if err != nil {
			return fmt.Errorf("failed to build forwarded email: %w", err)
		}
		return r.send(ctx, userEmail, &gmail.Message{Raw: encodeRaw(raw)})
	case model.ActionReply:
		raw := buildReply(email, userEmail, action.Content)
		return r.send(ctx, userEmail, &gmail.Message{Raw: encodeRaw(raw), ThreadId: exec.ThreadID})
	case model.ActionSendEmail:
		raw := buildEmail(userEmail, action.To, action.Subject, action.Content)
		return r.send(ctx, userEmail, &gmail.Message{Raw: encodeRaw(raw)})
	case model.ActionDraft:
		raw := buildReply(email, userEmail, action.Content)
		return r.draft(ctx, userEmail, &gmail.Message{Raw: encodeRaw(raw), ThreadId: exec.ThreadID})
	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (r *GmailRunner) label(ctx context.Context, threadID, name string) error {
	if name == "" {
		return fmt.Errorf("label action requires a label name")
	}
	id, err := r.labels.GetOrCreateNamed(ctx, name)
	if err != nil {
		return err
	}
	return r.labels.AddToThread(ctx, threadID, id)
}

// send submits a message, retrying transient quota errors with
// exponential backoff. Non-quota errors fail immediately.
func (r *GmailRunner) send(ctx context.Context, userEmail string, message *gmail.Message) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := r.service.Users.Messages.Send(userEmail, message).Context(ctx).Do()
		if err == nil {
			return nil
		}
		lastErr = err

		if !strings.Contains(err.Error(), "quota") && !strings.Contains(err.Error(), "rate") {
			break
		}
		waitTime := time.Duration(attempt*attempt) * time.Second
		r.log.Warnf("Rate limited sending message (attempt %d/%d), waiting %v", attempt, 3, waitTime)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to send message: %w", lastErr)
}

func (r *GmailRunner) draft(ctx context.Context, userEmail string, message *gmail.Message) error {
	_, err := r.service.Users.Drafts.Create(userEmail, &gmail.Draft{Message: message}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func encodeRaw(raw string) string {
	return base64.URLEncoding.EncodeToString([]byte(raw))
}
