package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/engine"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/logger"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/metrics"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// Submitter runs the alert cycle for one reading
type Submitter interface {
	HandleReading(ctx context.Context, reading *models.Reading) (*engine.Result, error)
}

// Consumer pulls water-level readings off a Kafka topic and feeds them to
// the engine. This is the streaming arrival path for deployments where the
// sensor feed lands on a broker instead of calling the HTTP API.
type Consumer struct {
	reader    *kafka.Reader
	submitter Submitter
}

// Config holds consumer configuration
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewConsumer creates a reading consumer
func NewConsumer(cfg Config, submitter Submitter) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  500 * time.Millisecond,
	})

	return &Consumer{reader: reader, submitter: submitter}, nil
}

// readingMessage is the wire format on the readings topic
type readingMessage struct {
	Level      *float64 `json:"level"`
	Location   string   `json:"location"`
	ObservedAt string   `json:"observed_at,omitempty"`
}

// Run consumes readings until the context is cancelled. Readings are
// handled one at a time in offset order; the offset is committed after the
// engine has made its decision, so a crash mid-cycle replays the reading
// and the cooldown gate absorbs the duplicate.
func (c *Consumer) Run(ctx context.Context) error {
	log := logger.WithComponent("kafka_consumer")
	log.Info().Str("topic", c.reader.Config().Topic).Msg("reading consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.handle(ctx, msg.Value); err != nil {
			log.Error().
				Err(err).
				Int64("offset", msg.Offset).
				Msg("failed to handle reading message")
			metrics.ReadingsTotal.WithLabelValues("kafka", "rejected").Inc()
		} else {
			metrics.ReadingsTotal.WithLabelValues("kafka", "accepted").Inc()
		}

		// Poison messages are logged and skipped, not replayed forever
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit offset")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, payload []byte) error {
	reading, err := decodeReading(payload)
	if err != nil {
		return err
	}

	_, err = c.submitter.HandleReading(ctx, reading)
	return err
}

// decodeReading parses one topic message into a Reading
func decodeReading(payload []byte) (*models.Reading, error) {
	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("invalid reading payload: %w", err)
	}

	if msg.Level == nil {
		return nil, errors.New("reading payload missing level")
	}

	reading := &models.Reading{
		Level:    *msg.Level,
		Location: msg.Location,
	}

	if msg.ObservedAt != "" {
		ts, err := time.Parse(time.RFC3339, msg.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("observed_at: %w", err)
		}
		reading.ObservedAt = ts
	}

	return reading, nil
}

// Close shuts the underlying reader down
func (c *Consumer) Close() error {
	return c.reader.Close()
}
