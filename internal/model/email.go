package model

import (
	"strings"
	"time"
)

// EmailMessage represents an email message structure
type EmailMessage struct {
	ID           string            `json:"id"`
	ThreadID     string            `json:"thread_id"`
	Subject      string            `json:"subject"`
	From         string            `json:"from"`
	To           []string          `json:"to"`
	CC           []string          `json:"cc"`
	Body         string            `json:"body"`
	HTMLBody     string            `json:"html_body"`
	Headers      map[string]string `json:"headers"`
	InternalDate time.Time         `json:"internal_date"`
	Raw          []byte            `json:"raw"`
	Attachments  []Attachment      `json:"attachments"`
}

// Attachment represents an email attachment
type Attachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Header returns a header value, matching the name case-insensitively.
func (e *EmailMessage) Header(name string) string {
	if v, ok := e.Headers[name]; ok {
		return v
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// IsReply reports whether the message is a reply to an earlier message,
// based on threading headers with a subject-prefix fallback.
func (e *EmailMessage) IsReply() bool {
	if e.Header("In-Reply-To") != "" || e.Header("References") != "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(e.Subject)), "re:")
}
