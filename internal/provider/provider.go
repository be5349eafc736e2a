package provider

import (
	"context"
	"errors"
)

// Provider errors
var (
	ErrNotConfigured = errors.New("provider not configured")
	ErrSendRejected  = errors.New("provider rejected message")
)

// Provider is the single contract shape behind which every notification
// channel sits. A send either returns the provider's reference for the
// accepted message or an error detail; the caller records the outcome and
// never retries here.
type Provider interface {
	Send(ctx context.Context, address, message string) (providerRef string, err error)
}

// Func adapts a plain function to the Provider interface
type Func func(ctx context.Context, address, message string) (string, error)

// Send implements Provider
func (f Func) Send(ctx context.Context, address, message string) (string, error) {
	return f(ctx, address, message)
}
