package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/model"
)

// IMAPFetcher implements EmailFetcher over IMAP for accounts without
// Gmail API access. Actions and labeling still require the Gmail API.
type IMAPFetcher struct {
	client    *client.Client
	lastCheck time.Time
}

// NewIMAPFetcher connects and logs in to the configured IMAP server.
func NewIMAPFetcher(cfg *config.GmailConfig) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPFetcher{
		client:    c,
		lastCheck: time.Now().Add(-24 * time.Hour), // Start with emails from last 24 hours
	}, nil
}

// FetchNewEmails fetches messages received since the last check.
func (f *IMAPFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	_, err := f.client.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = f.lastCheck

	uids, err := f.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	if len(uids) == 0 {
		f.lastCheck = time.Now()
		return []model.EmailMessage{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- f.client.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}, messages)
	}()

	var emails []model.EmailMessage

	for msg := range messages {
		email, err := parseIMAPMessage(msg, section)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message: %v", err)
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	f.lastCheck = time.Now()
	return emails, nil
}

// parseIMAPMessage converts an IMAP message into model.EmailMessage.
// IMAP has no provider thread id; the Message-ID doubles as the thread
// key so trackers still group replies that quote it in References.
func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (model.EmailMessage, error) {
	email := model.EmailMessage{
		Headers:      make(map[string]string),
		InternalDate: msg.InternalDate,
	}

	if msg.Envelope != nil {
		email.ID = strings.Trim(msg.Envelope.MessageId, "<>")
		email.ThreadID = email.ID
		email.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			email.From = msg.Envelope.From[0].Address()
		}
		for _, addr := range msg.Envelope.To {
			email.To = append(email.To, addr.Address())
		}
		for _, addr := range msg.Envelope.Cc {
			email.CC = append(email.CC, addr.Address())
		}
		if msg.Envelope.InReplyTo != "" {
			email.Headers["In-Reply-To"] = msg.Envelope.InReplyTo
			email.ThreadID = strings.Trim(msg.Envelope.InReplyTo, "<>")
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return email, nil
	}

	entity, err := message.Read(body)
	if err != nil && !message.IsUnknownCharset(err) {
		return email, fmt.Errorf("failed to read message body: %w", err)
	}

	fields := entity.Header.Fields()
	for fields.Next() {
		email.Headers[fields.Key()] = fields.Value()
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return email, fmt.Errorf("failed to read message part: %w", err)
			}
			contentType, _, _ := part.Header.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch contentType {
			case "text/plain":
				email.Body = string(data)
			case "text/html":
				email.HTMLBody = string(data)
			}
		}
	} else {
		data, err := io.ReadAll(entity.Body)
		if err == nil {
			email.Body = string(data)
		}
	}

	return email, nil
}

// Close logs out from the IMAP server.
func (f *IMAPFetcher) Close() error {
	return f.client.Logout()
}
