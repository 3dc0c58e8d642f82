package actions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-autopilot-go/internal/model"
)

func TestBuildForwardPlain(t *testing.T) {
	original := &model.EmailMessage{
		ID:      "msg-1",
		Subject: "Invoice - March",
		From:    "billing@vendor.com",
		To:      []string{"me@example.com"},
		Body:    "Please find the invoice attached.",
	}

	raw, err := buildForward(original, "me@example.com", "accounting@example.com", "FYI")
	require.NoError(t, err)

	assert.Contains(t, raw, "To: accounting@example.com\r\n")
	assert.Contains(t, raw, "Subject: Fwd: Invoice - March\r\n")
	assert.Contains(t, raw, "X-Original-From: billing@vendor.com\r\n")
	assert.Contains(t, raw, "X-Original-Message-ID: msg-1\r\n")
	assert.Contains(t, raw, "---------- Forwarded message ----------")
	assert.Contains(t, raw, "Please find the invoice attached.")
	assert.Contains(t, raw, "FYI")
	assert.NotContains(t, raw, "multipart/mixed")
}

func TestBuildForwardWithAttachments(t *testing.T) {
	original := &model.EmailMessage{
		ID:      "msg-1",
		Subject: "Invoice - March",
		From:    "billing@vendor.com",
		Attachments: []model.Attachment{
			{Filename: "invoice.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4")},
		},
	}

	raw, err := buildForward(original, "me@example.com", "accounting@example.com", "")
	require.NoError(t, err)

	assert.Contains(t, raw, "multipart/mixed")
	assert.Contains(t, raw, `Content-Disposition: attachment; filename="invoice.pdf"`)
	assert.Contains(t, raw, "Content-Type: application/pdf")
}

func TestBuildForwardRequiresTarget(t *testing.T) {
	_, err := buildForward(&model.EmailMessage{}, "me@example.com", "", "")
	assert.Error(t, err)
}

func TestBuildReplyThreadsCorrectly(t *testing.T) {
	original := &model.EmailMessage{
		Subject: "Invoice - March",
		From:    "billing@vendor.com",
		Headers: map[string]string{
			"Message-ID": "<orig@vendor.com>",
			"References": "<root@vendor.com>",
		},
	}

	raw := buildReply(original, "me@example.com", "Received, thanks.")

	assert.Contains(t, raw, "To: billing@vendor.com\r\n")
	assert.Contains(t, raw, "Subject: Re: Invoice - March\r\n")
	assert.Contains(t, raw, "In-Reply-To: <orig@vendor.com>\r\n")
	assert.Contains(t, raw, "References: <root@vendor.com> <orig@vendor.com>\r\n")
	assert.Contains(t, raw, "Received, thanks.")
}

func TestBuildReplyKeepsExistingRePrefix(t *testing.T) {
	original := &model.EmailMessage{
		Subject: "Re: Invoice - March",
		From:    "billing@vendor.com",
	}

	raw := buildReply(original, "me@example.com", "ok")
	assert.Contains(t, raw, "Subject: Re: Invoice - March\r\n")
	assert.Equal(t, 1, strings.Count(raw, "Re:"))
}

func TestBuildEmail(t *testing.T) {
	raw := buildEmail("me@example.com", "team@example.com", "Heads up", "Deploy at noon.")

	assert.True(t, strings.HasPrefix(raw, "From: me@example.com\r\n"))
	assert.Contains(t, raw, "To: team@example.com\r\n")
	assert.Contains(t, raw, "Subject: Heads up\r\n")
	assert.Contains(t, raw, "Deploy at noon.")
}
