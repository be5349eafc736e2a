package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// EmailConfig holds the mail API settings
type EmailConfig struct {
	BaseURL     string
	APIKey      string
	FromAddress string
	Timeout     time.Duration
}

// EmailProvider sends alert mail through an HTTP mail API
type EmailProvider struct {
	client *resty.Client
	cfg    EmailConfig
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type emailResponse struct {
	MessageID string `json:"message_id"`
}

// EmailSubject is the fixed subject line for alert mail
const EmailSubject = "Water Level Alert"

// NewEmailProvider creates an email provider client
func NewEmailProvider(cfg EmailConfig) *EmailProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey)

	return &EmailProvider{client: client, cfg: cfg}
}

// Send delivers one alert email and returns the provider message ID
func (p *EmailProvider) Send(ctx context.Context, address, message string) (string, error) {
	if p.cfg.BaseURL == "" || p.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: email api missing", ErrNotConfigured)
	}

	var result emailResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(emailRequest{
			From:    p.cfg.FromAddress,
			To:      address,
			Subject: EmailSubject,
			Body:    message,
		}).
		SetResult(&result).
		Post("/v1/mail/send")
	if err != nil {
		return "", fmt.Errorf("email send failed: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d: %s", ErrSendRejected, resp.StatusCode(), resp.String())
	}

	return result.MessageID, nil
}
