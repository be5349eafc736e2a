package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is one notification medium
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels lists every supported channel in dispatch order.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush}

// IsValid checks if the channel is supported
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	default:
		return false
	}
}

// DeliveryStatus is the terminal outcome of one delivery attempt
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryRecord captures the outcome of exactly one (alert, recipient,
// channel) attempt. Immutable after creation; never updated.
type DeliveryRecord struct {
	ID          string         `json:"id"`
	AlertID     string         `json:"alert_id"`
	ResidentID  string         `json:"resident_id"`
	Channel     Channel        `json:"channel"`
	Status      DeliveryStatus `json:"status"`
	ProviderRef string         `json:"provider_ref,omitempty"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attempted_at"`
}

// NewDeliveryRecord starts a record for one attempt
func NewDeliveryRecord(alertID, residentID string, ch Channel) *DeliveryRecord {
	return &DeliveryRecord{
		ID:          uuid.New().String(),
		AlertID:     alertID,
		ResidentID:  residentID,
		Channel:     ch,
		AttemptedAt: time.Now().UTC(),
	}
}

// Delivered marks the record as successfully handed to the provider
func (d *DeliveryRecord) Delivered(providerRef string) *DeliveryRecord {
	d.Status = DeliveryDelivered
	d.ProviderRef = providerRef
	return d
}

// Failed marks the record as a definitive failure with its error detail
func (d *DeliveryRecord) Failed(err error) *DeliveryRecord {
	d.Status = DeliveryFailed
	if err != nil {
		d.Error = err.Error()
	}
	return d
}
