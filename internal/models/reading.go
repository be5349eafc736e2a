package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reading represents a single water-level sensor reading. Immutable once
// created; produced by the sensor-ingestion boundary.
type Reading struct {
	// Unique identifier for the reading
	ID string `json:"id"`

	// Water level in inches
	Level float64 `json:"level"`

	// Sensor location, e.g. "Cupang Proper"
	Location string `json:"location"`

	// Timestamp the sensor observed the level
	ObservedAt time.Time `json:"observed_at"`
}

// Validation errors
var (
	ErrInvalidLevel      = errors.New("level must be a finite number")
	ErrEmptyLocation     = errors.New("location cannot be empty")
	ErrLocationTooLong   = errors.New("location exceeds maximum length")
	ErrFutureObservation = errors.New("observed_at cannot be in the future")
)

const MaxLocationLength = 256

// NewReading constructs a normalized reading observed now.
func NewReading(level float64, location string) *Reading {
	r := &Reading{
		ID:         uuid.New().String(),
		Level:      level,
		Location:   location,
		ObservedAt: time.Now().UTC(),
	}
	r.Normalize()
	return r
}

// Normalize applies field normalization to a Reading
// - trims Location
// - assigns an ID when missing
// - defaults ObservedAt to now and forces UTC
func (r *Reading) Normalize() {
	r.Location = strings.TrimSpace(r.Location)
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = time.Now()
	}
	r.ObservedAt = r.ObservedAt.UTC()
}

// Validate checks if the Reading has all required fields and valid values
func (r *Reading) Validate() error {
	if math.IsNaN(r.Level) || math.IsInf(r.Level, 0) {
		return ErrInvalidLevel
	}

	if r.Location == "" {
		return ErrEmptyLocation
	}

	if len(r.Location) > MaxLocationLength {
		return ErrLocationTooLong
	}

	if r.ObservedAt.After(time.Now().Add(time.Minute)) {
		return ErrFutureObservation
	}

	return nil
}

// Status classifies the reading's level. Always recomputed from Level,
// never stored independently.
func (r *Reading) Status() Status {
	return Classify(r.Level)
}
