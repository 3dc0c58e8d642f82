// Package labels manages the service's well-known Gmail labels and label
// application on threads and messages.
package labels

import (
	"context"
	"fmt"
	"sync"

	gmail "google.golang.org/api/gmail/v1"
)

// Key names a well-known label owned by the service.
type Key string

const (
	KeyActed         Key = "acted"
	KeyAwaitingReply Key = "awaiting-reply"
	KeyNeedsReply    Key = "needs-reply"
)

// labelNames maps well-known keys to the Gmail label names shown to the
// user. Nested under one parent so they group in the Gmail sidebar.
var labelNames = map[Key]string{
	KeyActed:         "Autopilot/Acted",
	KeyAwaitingReply: "Autopilot/Awaiting Reply",
	KeyNeedsReply:    "Autopilot/Needs Reply",
}

// Name returns the Gmail label name for a well-known key.
func Name(key Key) (string, error) {
	name, ok := labelNames[key]
	if !ok {
		return "", fmt.Errorf("unknown label key: %s", key)
	}
	return name, nil
}

// Provider is the label surface the executor and reply tracker consume.
type Provider interface {
	// GetOrCreate resolves a well-known label to its provider-side id,
	// creating the label on first use.
	GetOrCreate(ctx context.Context, key Key) (string, error)
	// GetOrCreateNamed resolves an arbitrary user label by name.
	GetOrCreateNamed(ctx context.Context, name string) (string, error)
	AddToThread(ctx context.Context, threadID string, labelIDs ...string) error
	RemoveFromThread(ctx context.Context, threadID string, labelIDs ...string) error
	AddToMessage(ctx context.Context, messageID string, labelIDs ...string) error
	RemoveFromMessage(ctx context.Context, messageID string, labelIDs ...string) error
}

// GmailProvider implements Provider over the Gmail API. Resolved label ids
// are memoized on the provider; label ids are stable for the life of the
// account so the cache never needs invalidation.
type GmailProvider struct {
	service   *gmail.Service
	userEmail string

	mu    sync.Mutex
	cache map[string]string // label name -> label id
}

func NewGmailProvider(service *gmail.Service, userEmail string) *GmailProvider {
	return &GmailProvider{
		service:   service,
		userEmail: userEmail,
		cache:     make(map[string]string),
	}
}

// GetOrCreate resolves a well-known label key to its Gmail label id.
func (p *GmailProvider) GetOrCreate(ctx context.Context, key Key) (string, error) {
	name, err := Name(key)
	if err != nil {
		return "", err
	}
	return p.GetOrCreateNamed(ctx, name)
}

// GetOrCreateNamed resolves a label by name, creating it if absent.
func (p *GmailProvider) GetOrCreateNamed(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	if id, ok := p.cache[name]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	list, err := p.service.Users.Labels.List(p.userEmail).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}
	for _, label := range list.Labels {
		if label.Name == name {
			p.remember(name, label.Id)
			return label.Id, nil
		}
	}

	created, err := p.service.Users.Labels.Create(p.userEmail, &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}
	p.remember(name, created.Id)
	return created.Id, nil
}

func (p *GmailProvider) remember(name, id string) {
	p.mu.Lock()
	p.cache[name] = id
	p.mu.Unlock()
}

// AddToThread attaches labels to every message in a thread.
func (p *GmailProvider) AddToThread(ctx context.Context, threadID string, labelIDs ...string) error {
	_, err := p.service.Users.Threads.Modify(p.userEmail, threadID, &gmail.ModifyThreadRequest{
		AddLabelIds: labelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add labels to thread %s: %w", threadID, err)
	}
	return nil
}

// RemoveFromThread detaches labels from every message in a thread.
func (p *GmailProvider) RemoveFromThread(ctx context.Context, threadID string, labelIDs ...string) error {
	_, err := p.service.Users.Threads.Modify(p.userEmail, threadID, &gmail.ModifyThreadRequest{
		RemoveLabelIds: labelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to remove labels from thread %s: %w", threadID, err)
	}
	return nil
}

// AddToMessage attaches labels to a single message.
func (p *GmailProvider) AddToMessage(ctx context.Context, messageID string, labelIDs ...string) error {
	_, err := p.service.Users.Messages.Modify(p.userEmail, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: labelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add labels to message %s: %w", messageID, err)
	}
	return nil
}

// RemoveFromMessage detaches labels from a single message.
func (p *GmailProvider) RemoveFromMessage(ctx context.Context, messageID string, labelIDs ...string) error {
	_, err := p.service.Users.Messages.Modify(p.userEmail, messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: labelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to remove labels from message %s: %w", messageID, err)
	}
	return nil
}
