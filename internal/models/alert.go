package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AlertEvent is the durable record of one raised alert. Created exactly once
// per cooldown window in which a notifiable status occurs; immutable after
// creation.
type AlertEvent struct {
	ID       string    `json:"id"`
	Level    float64   `json:"level"`
	Status   Status    `json:"status"`
	Location string    `json:"location"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raised_at"`
}

// NewAlertEvent builds the alert event for a notifiable reading. The
// human-readable message is composed once here and reused verbatim for every
// recipient and channel; it is not personalized.
func NewAlertEvent(reading *Reading, status Status, raisedAt time.Time) *AlertEvent {
	return &AlertEvent{
		ID:       uuid.New().String(),
		Level:    reading.Level,
		Status:   status,
		Location: reading.Location,
		Message:  ComposeAlertMessage(status, reading.Level, reading.Location),
		RaisedAt: raisedAt.UTC(),
	}
}

// ComposeAlertMessage renders the broadcast alert text: status label, level,
// location, and the fixed precaution sentence.
func ComposeAlertMessage(status Status, level float64, location string) string {
	return fmt.Sprintf(
		"ALERT: Water level at %s is %s inches (%s). Please take necessary precautions.",
		location,
		strconv.FormatFloat(level, 'f', -1, 64),
		status,
	)
}
