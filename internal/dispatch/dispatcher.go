package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/logger"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/metrics"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/provider"
)

// Dispatch errors
var (
	ErrDeliveryTimeout = errors.New("delivery timed out")
	ErrNoProvider      = errors.New("no provider for channel")
)

// Dispatcher fans one alert out to every eligible (resident, channel) pair.
// Every pair is attempted independently and exactly once: a failure on one
// pair never aborts, retries, or delays a sibling. Dispatch returns only
// after every attempt has reached a terminal state, so the caller can
// persist a complete set of delivery records before committing the cycle.
type Dispatcher struct {
	providers   map[models.Channel]provider.Provider
	concurrency int
	timeout     time.Duration

	// When true, SMS is reserved for CRITICAL alerts. The resident-facing
	// settings screen treats all three channels as plain toggles, so this
	// stays a named configuration rule rather than hard-coded policy.
	smsCriticalOnly bool
}

// Config holds dispatcher configuration
type Config struct {
	Providers             map[models.Channel]provider.Provider
	ConcurrencyPerChannel int
	ProviderTimeout       time.Duration
	SMSCriticalOnly       bool
}

// NewDispatcher creates a dispatcher
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.ConcurrencyPerChannel <= 0 {
		cfg.ConcurrencyPerChannel = 8
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}

	return &Dispatcher{
		providers:       cfg.Providers,
		concurrency:     cfg.ConcurrencyPerChannel,
		timeout:         cfg.ProviderTimeout,
		smsCriticalOnly: cfg.SMSCriticalOnly,
	}
}

// pair is one unit of fan-out work
type pair struct {
	resident models.Resident
	channel  models.Channel
	address  string
}

// Dispatch attempts delivery of the alert to every eligible pair and
// returns one terminal DeliveryRecord per attempt. The alert message was
// composed once on the event; it is reused verbatim for every recipient.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.AlertEvent, residents []models.Resident) []*models.DeliveryRecord {
	log := logger.WithAlert(event.ID)

	pairs := d.eligiblePairs(event.Status, residents)

	log.Info().
		Str("status", string(event.Status)).
		Int("residents", len(residents)).
		Int("pairs", len(pairs)).
		Msg("starting alert fan-out")

	metrics.DispatchFanoutSize.Observe(float64(len(pairs)))
	start := time.Now()

	// Per-channel semaphores bound concurrent provider calls so a large
	// roster cannot overwhelm a single channel provider
	sems := make(map[models.Channel]chan struct{}, len(models.Channels))
	for _, ch := range models.Channels {
		sems[ch] = make(chan struct{}, d.concurrency)
	}

	records := make([]*models.DeliveryRecord, len(pairs))
	var wg sync.WaitGroup

	for i, p := range pairs {
		wg.Add(1)
		go func(i int, p pair) {
			defer wg.Done()
			sems[p.channel] <- struct{}{}
			defer func() { <-sems[p.channel] }()

			records[i] = d.attempt(ctx, event, p)
		}(i, p)
	}

	// Join: the cycle is not complete until every pair is terminal
	wg.Wait()

	duration := time.Since(start)
	metrics.DispatchDuration.Observe(duration.Seconds())

	delivered := 0
	for _, rec := range records {
		if rec.Status == models.DeliveryDelivered {
			delivered++
		}
	}

	log.Info().
		Int("attempted", len(records)).
		Int("delivered", delivered).
		Int("failed", len(records)-delivered).
		Dur("duration", duration).
		Msg("alert fan-out complete")

	return records
}

// attempt performs exactly one provider call for one pair
func (d *Dispatcher) attempt(ctx context.Context, event *models.AlertEvent, p pair) (record *models.DeliveryRecord) {
	log := logger.WithAlert(event.ID)
	record = models.NewDeliveryRecord(event.ID, p.resident.ID, p.channel)

	// A panicking provider client must not take sibling deliveries down
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("channel", string(p.channel)).
				Msg("provider panic recovered")
			metrics.PanicsRecovered.WithLabelValues("dispatch").Inc()
			record.Failed(fmt.Errorf("provider panic: %v", r))
			metrics.DeliveriesTotal.WithLabelValues(string(p.channel), string(models.DeliveryFailed)).Inc()
		}
	}()

	prov, ok := d.providers[p.channel]
	if !ok || prov == nil {
		record.Failed(fmt.Errorf("%w: %s", ErrNoProvider, p.channel))
		metrics.DeliveriesTotal.WithLabelValues(string(p.channel), string(models.DeliveryFailed)).Inc()
		return record
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	ref, err := prov.Send(callCtx, p.address, event.Message)
	elapsed := time.Since(start)

	metrics.DeliveryDuration.WithLabelValues(string(p.channel)).Observe(elapsed.Seconds())

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w after %s: %v", ErrDeliveryTimeout, d.timeout, err)
		}
		log.Warn().
			Err(err).
			Str("resident_id", p.resident.ID).
			Str("channel", string(p.channel)).
			Dur("duration", elapsed).
			Msg("delivery failed")
		record.Failed(err)
		metrics.DeliveriesTotal.WithLabelValues(string(p.channel), string(models.DeliveryFailed)).Inc()
		return record
	}

	log.Debug().
		Str("resident_id", p.resident.ID).
		Str("channel", string(p.channel)).
		Str("provider_ref", ref).
		Dur("duration", elapsed).
		Msg("delivery succeeded")
	record.Delivered(ref)
	metrics.DeliveriesTotal.WithLabelValues(string(p.channel), string(models.DeliveryDelivered)).Inc()
	return record
}

// eligiblePairs computes the fan-out set for one alert. A resident with a
// channel enabled but no usable address is skipped on that channel only.
func (d *Dispatcher) eligiblePairs(status models.Status, residents []models.Resident) []pair {
	var pairs []pair
	for _, res := range residents {
		for _, ch := range models.Channels {
			if !d.channelEligible(status, res, ch) {
				continue
			}
			address, ok := res.AddressFor(ch)
			if !ok {
				log := logger.WithComponent("dispatch")
				log.Debug().
					Str("resident_id", res.ID).
					Str("channel", string(ch)).
					Msg("channel enabled but address missing, skipping")
				continue
			}
			pairs = append(pairs, pair{resident: res, channel: ch, address: address})
		}
	}
	return pairs
}

func (d *Dispatcher) channelEligible(status models.Status, res models.Resident, ch models.Channel) bool {
	switch ch {
	case models.ChannelEmail:
		return res.Preferences.Email
	case models.ChannelSMS:
		if !res.Preferences.SMS {
			return false
		}
		if d.smsCriticalOnly && status != models.StatusCritical {
			return false
		}
		return true
	case models.ChannelPush:
		return res.Preferences.Push
	default:
		return false
	}
}
