package platform

import (
	"context"

	"github.com/studynote/studynote-api/pkg/config"
)

// Identity is the profile a provider resolves from platform credentials.
type Identity struct {
	UserID    string
	Name      string
	AvatarURL string
}

// Provider abstracts the runtime platform. Exactly two implementations
// exist: the Zalo Mini App and the plain web client. The active one is
// chosen once at startup from configuration.
type Provider interface {
	// Name reports the platform identifier stored on user rows.
	Name() string
	// VerifyToken resolves a platform access token to an identity.
	VerifyToken(ctx context.Context, accessToken string) (*Identity, error)
	// SendMessage delivers a text message to a platform user.
	SendMessage(ctx context.Context, platformUserID, text string) error
}

// New selects the provider for the configured platform.
func New(cfg config.PlatformConfig) Provider {
	if cfg.Name == config.PlatformZalo {
		return NewZaloProvider(cfg)
	}
	return NewWebProvider()
}
