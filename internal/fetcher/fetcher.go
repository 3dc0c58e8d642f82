// Package fetcher pulls new messages from the mail provider for the
// processing pipeline.
package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"

	"inbox-autopilot-go/internal/model"
)

// EmailFetcher interface for fetching emails
type EmailFetcher interface {
	FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error)
	Close() error
}

// GmailAPIFetcher implements EmailFetcher using the Gmail API.
type GmailAPIFetcher struct {
	service   *gmail.Service
	userEmail string
	lastCheck time.Time
}

// NewGmailAPIFetcher creates a new Gmail API fetcher on a shared service.
func NewGmailAPIFetcher(service *gmail.Service, userEmail string) *GmailAPIFetcher {
	return &GmailAPIFetcher{
		service:   service,
		userEmail: userEmail,
		lastCheck: time.Now().Add(-24 * time.Hour), // Start with emails from last 24 hours
	}
}

// FetchNewEmails fetches messages received since the last check.
func (f *GmailAPIFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	query := fmt.Sprintf("after:%d", f.lastCheck.Unix())

	call := f.service.Users.Messages.List(f.userEmail).Q(query).Context(ctx)
	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var emails []model.EmailMessage

	for _, msg := range response.Messages {
		message, err := f.service.Users.Messages.Get(f.userEmail, msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", msg.Id, err)
			continue
		}

		email, err := parseGmailMessage(message)
		if err != nil {
			logrus.Warnf("Failed to parse message %s: %v", msg.Id, err)
			continue
		}

		emails = append(emails, email)
	}

	f.lastCheck = time.Now()
	return emails, nil
}

// parseGmailMessage parses a Gmail API message into model.EmailMessage.
func parseGmailMessage(msg *gmail.Message) (model.EmailMessage, error) {
	email := model.EmailMessage{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		InternalDate: time.UnixMilli(msg.InternalDate),
		Headers:      make(map[string]string),
	}

	for _, header := range msg.Payload.Headers {
		email.Headers[header.Name] = header.Value

		switch header.Name {
		case "Subject":
			email.Subject = header.Value
		case "From":
			email.From = header.Value
		case "To":
			email.To = strings.Split(header.Value, ",")
		case "Cc":
			email.CC = strings.Split(header.Value, ",")
		}
	}

	if err := parseGmailBody(msg.Payload, &email); err != nil {
		return email, err
	}

	return email, nil
}

// parseGmailBody recursively parses Gmail message body parts.
func parseGmailBody(part *gmail.MessagePart, email *model.EmailMessage) error {
	if part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return fmt.Errorf("failed to decode body data: %w", err)
		}

		content := string(data)

		switch part.MimeType {
		case "text/plain":
			email.Body = content
		case "text/html":
			email.HTMLBody = content
		}
	}

	if part.Parts != nil {
		for _, subPart := range part.Parts {
			if err := parseGmailBody(subPart, email); err != nil {
				return err
			}
		}
	}

	return nil
}

// FetchEmail fetches a single message by id, for executions whose
// message content is no longer in the current cycle's batch.
func (f *GmailAPIFetcher) FetchEmail(ctx context.Context, messageID string) (*model.EmailMessage, error) {
	message, err := f.service.Users.Messages.Get(f.userEmail, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	email, err := parseGmailMessage(message)
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// Close closes the Gmail API fetcher
func (f *GmailAPIFetcher) Close() error {
	// Gmail API service doesn't need explicit closing
	return nil
}
