package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// SMSConfig holds Twilio-style SMS gateway credentials
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

// SMSProvider sends text messages through a Twilio-compatible REST API
type SMSProvider struct {
	client *resty.Client
	cfg    SMSConfig
}

type smsResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// NewSMSProvider creates an SMS provider client
func NewSMSProvider(cfg SMSConfig) *SMSProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	return &SMSProvider{client: client, cfg: cfg}
}

// Send delivers one SMS and returns the provider message SID
func (p *SMSProvider) Send(ctx context.Context, address, message string) (string, error) {
	if p.cfg.AccountSID == "" || p.cfg.AuthToken == "" || p.cfg.FromNumber == "" {
		return "", fmt.Errorf("%w: sms credentials missing", ErrNotConfigured)
	}

	var result smsResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   address,
			"From": p.cfg.FromNumber,
			"Body": message,
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", p.cfg.AccountSID))
	if err != nil {
		return "", fmt.Errorf("sms send failed: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d: %s", ErrSendRejected, resp.StatusCode(), resp.String())
	}

	return result.SID, nil
}
