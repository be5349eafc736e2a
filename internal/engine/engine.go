package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/logger"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/metrics"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// Engine errors
var (
	ErrRosterUnavailable = errors.New("resident roster unavailable")
)

// Gate controls how often alert cycles may run
type Gate interface {
	TryOpen(ctx context.Context, now time.Time) (bool, error)
	Commit(ctx context.Context, now time.Time) error
	Abort(ctx context.Context)
}

// RecipientResolver loads the current recipient set
type RecipientResolver interface {
	ListResidents(ctx context.Context) ([]models.Resident, error)
}

// AlertStore appends raised alerts
type AlertStore interface {
	CreateAlertEvent(ctx context.Context, event *models.AlertEvent) error
}

// DeliveryStore appends delivery outcomes
type DeliveryStore interface {
	CreateDeliveryRecord(ctx context.Context, record *models.DeliveryRecord) error
}

// ReadingStore appends ingested readings
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
}

// Dispatcher fans one alert out and returns a terminal record per attempt
type Dispatcher interface {
	Dispatch(ctx context.Context, event *models.AlertEvent, residents []models.Resident) []*models.DeliveryRecord
}

// Engine runs the alert cycle for each ingested reading: classify, pass the
// cooldown gate, resolve recipients, fan out, log every delivery, commit.
// Readings arrive as a single logical stream; concurrency inside one cycle
// is the dispatcher's business, concurrency across cycles is the gate's.
type Engine struct {
	gate       Gate
	resolver   RecipientResolver
	alerts     AlertStore
	deliveries DeliveryStore
	readings   ReadingStore
	dispatcher Dispatcher
}

// New creates an engine from its collaborators
func New(gate Gate, resolver RecipientResolver, alerts AlertStore, deliveries DeliveryStore, readings ReadingStore, dispatcher Dispatcher) *Engine {
	return &Engine{
		gate:       gate,
		resolver:   resolver,
		alerts:     alerts,
		deliveries: deliveries,
		readings:   readings,
		dispatcher: dispatcher,
	}
}

// Result is the ack returned to the ingestion boundary
type Result struct {
	Reading *models.Reading          `json:"reading"`
	Status  models.Status            `json:"status"`
	Alerted bool                     `json:"alerted"`
	Alert   *models.AlertEvent       `json:"alert,omitempty"`
	Records []*models.DeliveryRecord `json:"-"`
}

// HandleReading processes one sensor reading end to end. It returns an
// error only when the reading is invalid or the cycle failed before any
// dispatch (gate unavailable, roster unavailable, alert not persisted);
// individual delivery failures are recorded, not surfaced.
func (e *Engine) HandleReading(ctx context.Context, reading *models.Reading) (*Result, error) {
	log := logger.WithComponent("engine")

	reading.Normalize()
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	status := reading.Status()
	metrics.ReadingsByBand.WithLabelValues(string(status)).Inc()

	// Reading history is for the dashboard; a write failure there must not
	// cost anyone an alert
	if err := e.readings.CreateReading(ctx, reading); err != nil {
		log.Warn().
			Err(err).
			Str("reading_id", reading.ID).
			Msg("failed to persist reading")
	}

	result := &Result{Reading: reading, Status: status}

	if !status.Notifiable() {
		return result, nil
	}

	now := reading.ObservedAt

	allowed, err := e.gate.TryOpen(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("cooldown check failed: %w", err)
	}
	if !allowed {
		log.Info().
			Str("status", string(status)).
			Float64("level", reading.Level).
			Msg("alert suppressed by cooldown gate")
		metrics.CooldownRejectionsTotal.Inc()
		return result, nil
	}

	// Gate is open and this cycle owns it until Commit or Abort

	residents, err := e.resolver.ListResidents(ctx)
	if err != nil {
		e.gate.Abort(ctx)
		metrics.RosterResolutionErrors.Inc()
		log.Error().Err(err).Msg("alert cycle aborted: roster resolution failed")
		return nil, fmt.Errorf("%w: %v", ErrRosterUnavailable, err)
	}

	event := models.NewAlertEvent(reading, status, now)

	if err := e.alerts.CreateAlertEvent(ctx, event); err != nil {
		e.gate.Abort(ctx)
		return nil, fmt.Errorf("failed to record alert event: %w", err)
	}

	records := e.dispatcher.Dispatch(ctx, event, residents)

	// Every attempt gets its row, delivered or failed, before the cycle
	// commits
	for _, record := range records {
		if err := e.deliveries.CreateDeliveryRecord(ctx, record); err != nil {
			log := logger.WithAlert(event.ID)
			log.Error().
				Err(err).
				Str("resident_id", record.ResidentID).
				Str("channel", string(record.Channel)).
				Msg("anomaly: delivery outcome not persisted")
		}
	}

	// Commit failures are logged inside the gate; the dispatched alert
	// stands either way
	_ = e.gate.Commit(ctx, now)

	metrics.AlertsRaisedTotal.WithLabelValues(string(status)).Inc()
	log.Info().
		Str("alert_id", event.ID).
		Str("status", string(status)).
		Float64("level", reading.Level).
		Str("location", reading.Location).
		Int("deliveries", len(records)).
		Msg("alert cycle complete")

	result.Alerted = true
	result.Alert = event
	result.Records = records
	return result, nil
}
