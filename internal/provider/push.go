package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// PushConfig holds the push gateway settings
type PushConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PushProvider sends push notifications through an FCM-style gateway.
// The address is the resident ID; the gateway owns the device binding.
type PushProvider struct {
	client *resty.Client
	cfg    PushConfig
}

type pushRequest struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type pushResponse struct {
	ID string `json:"id"`
}

// PushTitle is the fixed title for alert push notifications
const PushTitle = "Water Level Alert"

// NewPushProvider creates a push provider client
func NewPushProvider(cfg PushConfig) *PushProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey)

	return &PushProvider{client: client, cfg: cfg}
}

// Send delivers one push notification and returns the gateway message ID
func (p *PushProvider) Send(ctx context.Context, address, message string) (string, error) {
	if p.cfg.BaseURL == "" {
		return "", fmt.Errorf("%w: push gateway missing", ErrNotConfigured)
	}

	var result pushResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(pushRequest{
			To:    address,
			Title: PushTitle,
			Body:  message,
		}).
		SetResult(&result).
		Post("/v1/push")
	if err != nil {
		return "", fmt.Errorf("push send failed: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d: %s", ErrSendRejected, resp.StatusCode(), resp.String())
	}

	return result.ID, nil
}
