package platform

import (
	"context"

	"github.com/studynote/studynote-api/pkg/config"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

// WebProvider is the fallback for the plain web client. Web users
// authenticate with email/password instead of a platform token, and the web
// client has no push channel, so messaging is a no-op.
type WebProvider struct{}

// NewWebProvider constructs the provider.
func NewWebProvider() *WebProvider {
	return &WebProvider{}
}

// Name reports the platform identifier.
func (p *WebProvider) Name() string {
	return config.PlatformWeb
}

// VerifyToken always fails: web logins carry credentials, not tokens.
func (p *WebProvider) VerifyToken(ctx context.Context, accessToken string) (*Identity, error) {
	return nil, appErrors.Clone(appErrors.ErrValidation, "web platform logins use email and password")
}

// SendMessage is a no-op; parents see updates in the app instead.
func (p *WebProvider) SendMessage(ctx context.Context, platformUserID, text string) error {
	return nil
}
