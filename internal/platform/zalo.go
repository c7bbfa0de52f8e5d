package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/studynote/studynote-api/pkg/config"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

// ZaloProvider talks to the Zalo Open API for identity and OA messaging.
type ZaloProvider struct {
	baseURL string
	oaToken string
	client  *http.Client
}

// NewZaloProvider constructs the provider from configuration.
func NewZaloProvider(cfg config.PlatformConfig) *ZaloProvider {
	baseURL := strings.TrimRight(cfg.ZaloAPIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://graph.zalo.me"
	}
	return &ZaloProvider{
		baseURL: baseURL,
		oaToken: cfg.ZaloOAToken,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name reports the platform identifier.
func (p *ZaloProvider) Name() string {
	return config.PlatformZalo
}

type zaloProfileResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Error   int    `json:"error"`
	Message string `json:"message"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// VerifyToken resolves a Mini App access token to the Zalo user profile.
func (p *ZaloProvider) VerifyToken(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "access token is required")
	}

	url := fmt.Sprintf("%s/v2.0/me?fields=id,name,picture", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "build zalo profile request")
	}
	req.Header.Set("access_token", accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "zalo profile request failed")
	}
	defer resp.Body.Close()

	var profile zaloProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "decode zalo profile")
	}
	if resp.StatusCode != http.StatusOK || profile.Error != 0 || profile.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid zalo access token")
	}

	return &Identity{
		UserID:    profile.ID,
		Name:      profile.Name,
		AvatarURL: profile.Picture.Data.URL,
	}, nil
}

type zaloMessageRequest struct {
	Recipient struct {
		UserID string `json:"user_id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type zaloMessageResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// SendMessage delivers a text message through the Official Account API.
func (p *ZaloProvider) SendMessage(ctx context.Context, platformUserID, text string) error {
	payload := zaloMessageRequest{}
	payload.Recipient.UserID = platformUserID
	payload.Message.Text = text

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal zalo message: %w", err)
	}

	url := fmt.Sprintf("%s/v3.0/oa/message/cs", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "build zalo message request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", p.oaToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "zalo message request failed")
	}
	defer resp.Body.Close()

	var result zaloMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "decode zalo message response")
	}
	if resp.StatusCode != http.StatusOK || result.Error != 0 {
		return appErrors.Clone(appErrors.ErrPlatform, fmt.Sprintf("zalo message rejected: %s", result.Message))
	}
	return nil
}
