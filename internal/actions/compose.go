package actions

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"inbox-autopilot-go/internal/model"
)

// buildForward creates a forwarded copy of the original message with the
// usual quoting block and the original routing preserved in X- headers.
func buildForward(original *model.EmailMessage, fromEmail, targetEmail, note string) (string, error) {
	if targetEmail == "" {
		return "", fmt.Errorf("forward action requires a target address")
	}

	var b strings.Builder
	boundary := fmt.Sprintf("autopilot-%d", time.Now().UnixNano())

	b.WriteString(fmt.Sprintf("From: %s\r\n", fromEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", targetEmail))
	b.WriteString(fmt.Sprintf("Subject: Fwd: %s\r\n", original.Subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(original.Attachments) > 0 {
		b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary))
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	}

	if original.From != "" {
		b.WriteString(fmt.Sprintf("X-Original-From: %s\r\n", original.From))
	}
	if len(original.To) > 0 {
		b.WriteString(fmt.Sprintf("X-Original-To: %s\r\n", strings.Join(original.To, ", ")))
	}
	b.WriteString(fmt.Sprintf("X-Original-Message-ID: %s\r\n", original.ID))
	b.WriteString("\r\n")

	if len(original.Attachments) > 0 {
		b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	}

	if note != "" {
		b.WriteString(note)
		b.WriteString("\r\n\r\n")
	}
	b.WriteString("---------- Forwarded message ----------\r\n")
	b.WriteString(fmt.Sprintf("From: %s\r\n", original.From))
	if len(original.To) > 0 {
		b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(original.To, ", ")))
	}
	if len(original.CC) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(original.CC, ", ")))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", original.Subject))
	b.WriteString("\r\n")
	b.WriteString(original.Body)
	b.WriteString("\r\n")

	for _, att := range original.Attachments {
		b.WriteString(fmt.Sprintf("\r\n--%s\r\n", boundary))
		b.WriteString(fmt.Sprintf("Content-Type: %s\r\n", att.MIMEType))
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", att.Filename))
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(base64.StdEncoding.EncodeToString(att.Data))
		b.WriteString("\r\n")
	}
	if len(original.Attachments) > 0 {
		b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	}

	return b.String(), nil
}

// buildReply creates a reply in the original message's thread, carrying
// the In-Reply-To and References headers threading relies on.
func buildReply(original *model.EmailMessage, fromEmail, content string) string {
	var b strings.Builder

	subject := original.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	b.WriteString(fmt.Sprintf("From: %s\r\n", fromEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", original.From))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	if msgID := original.Header("Message-ID"); msgID != "" {
		b.WriteString(fmt.Sprintf("In-Reply-To: %s\r\n", msgID))
		refs := original.Header("References")
		if refs != "" {
			refs += " "
		}
		b.WriteString(fmt.Sprintf("References: %s%s\r\n", refs, msgID))
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(content)
	b.WriteString("\r\n")

	return b.String()
}

// buildEmail creates a standalone outbound message.
func buildEmail(fromEmail, to, subject, content string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", fromEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(content)
	b.WriteString("\r\n")
	return b.String()
}
