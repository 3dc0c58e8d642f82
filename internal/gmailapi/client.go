// Package gmailapi builds the shared Gmail API client from OAuth2
// refresh-token credentials.
package gmailapi

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"inbox-autopilot-go/internal/config"
)

// NewService creates a Gmail API service authenticated with the
// configured refresh token. The gmail.modify scope covers reading,
// sending, drafting and label changes.
func NewService(ctx context.Context, cfg *config.GmailConfig) (*gmail.Service, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailModifyScope, gmail.GmailLabelsScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return service, nil
}
