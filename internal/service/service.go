package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/config"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/cooldown"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/dispatch"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/engine"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/handlers"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/ingest"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/logger"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/middleware"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/provider"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/roster"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/store"
)

// Service wires the alerting engine to its infrastructure: Postgres for
// the durable logs and roster, Redis for the cooldown gate, the channel
// provider clients, and the HTTP/Kafka ingestion boundaries.
type Service struct {
	cfg         *config.Config
	db          *sql.DB
	redisClient *redis.Client
	engine      *engine.Engine
	httpServer  *http.Server
	consumer    *ingest.Consumer
	wg          sync.WaitGroup
}

// New builds the service from configuration
func New(cfg *config.Config) (*Service, error) {
	db, err := sql.Open("postgres", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	gate := cooldown.NewGate(redisClient, cooldown.Config{
		Interval:  cfg.Cooldown.Interval,
		LockTTL:   cfg.Cooldown.LockTTL,
		KeyPrefix: cfg.Cooldown.KeyPrefix,
	})

	residentRepo := roster.NewResidentRepository(db)
	alertRepo := store.NewAlertRepository(db)
	deliveryRepo := store.NewDeliveryRepository(db)
	readingRepo := store.NewReadingRepository(db)

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		Providers: map[models.Channel]provider.Provider{
			models.ChannelSMS: provider.NewSMSProvider(provider.SMSConfig{
				BaseURL:    cfg.Providers.SMS.BaseURL,
				AccountSID: cfg.Providers.SMS.AccountSID,
				AuthToken:  cfg.Providers.SMS.AuthToken,
				FromNumber: cfg.Providers.SMS.FromNumber,
				Timeout:    cfg.Dispatch.ProviderTimeout,
			}),
			models.ChannelEmail: provider.NewEmailProvider(provider.EmailConfig{
				BaseURL:     cfg.Providers.Email.BaseURL,
				APIKey:      cfg.Providers.Email.APIKey,
				FromAddress: cfg.Providers.Email.FromAddress,
				Timeout:     cfg.Dispatch.ProviderTimeout,
			}),
			models.ChannelPush: provider.NewPushProvider(provider.PushConfig{
				BaseURL: cfg.Providers.Push.BaseURL,
				APIKey:  cfg.Providers.Push.APIKey,
				Timeout: cfg.Dispatch.ProviderTimeout,
			}),
		},
		ConcurrencyPerChannel: cfg.Dispatch.ConcurrencyPerChannel,
		ProviderTimeout:       cfg.Dispatch.ProviderTimeout,
		SMSCriticalOnly:       cfg.Dispatch.SMSCriticalOnly,
	})

	eng := engine.New(gate, residentRepo, alertRepo, deliveryRepo, readingRepo, dispatcher)

	s := &Service{
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		engine:      eng,
	}
	s.initHTTPServer(alertRepo, deliveryRepo, readingRepo)

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := ingest.NewConsumer(ingest.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, eng)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		s.consumer = consumer
	}

	return s, nil
}

// Run starts the ingestion surfaces and blocks until the context is
// cancelled
func (s *Service) Run(ctx context.Context) error {
	log := logger.WithComponent("service")
	log.Info().
		Dur("cooldown_interval", s.cfg.Cooldown.Interval).
		Bool("sms_critical_only", s.cfg.Dispatch.SMSCriticalOnly).
		Bool("kafka_enabled", s.consumer != nil).
		Msg("alerting service starting")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info().Str("addr", s.cfg.HTTP.Addr).Msg("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	if s.consumer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("kafka consumer error")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return s.shutdown()
}

// initHTTPServer mounts the ingestion and reporting endpoints
func (s *Service) initHTTPServer(alerts *store.AlertRepository, deliveries *store.DeliveryRepository, readings *store.ReadingRepository) {
	mux := http.NewServeMux()

	readingsHandler := handlers.NewReadingsHandler(s.engine, "http")
	mux.Handle("/api/v1/readings", middleware.Chain(
		readingsHandler,
		middleware.Recovery,
		middleware.Logging,
	))

	// Manual trigger for operational testing, gated by bearer token
	triggerHandler := handlers.NewReadingsHandler(s.engine, "trigger")
	mux.Handle("/api/v1/alerts/trigger", middleware.Chain(
		triggerHandler,
		middleware.Recovery,
		middleware.Logging,
		middleware.BearerAuth(s.cfg.HTTP.TriggerAuthToken),
	))

	reports := handlers.NewReportsHandler(alerts, deliveries, readings)
	mux.Handle("/api/v1/alerts", middleware.Chain(
		http.HandlerFunc(reports.Alerts),
		middleware.Recovery,
		middleware.Logging,
	))
	mux.Handle("/api/v1/deliveries", middleware.Chain(
		http.HandlerFunc(reports.Deliveries),
		middleware.Recovery,
		middleware.Logging,
	))
	mux.Handle("/api/v1/history", middleware.Chain(
		http.HandlerFunc(reports.Readings),
		middleware.Recovery,
		middleware.Logging,
	))

	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// healthHandler reports liveness plus backing-store reachability
func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := `{"status":"ok"}`

	if err := s.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body = `{"status":"degraded","detail":"database unreachable"}`
	} else if err := s.redisClient.Ping(ctx).Err(); err != nil {
		status = http.StatusServiceUnavailable
		body = `{"status":"degraded","detail":"redis unreachable"}`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// shutdown performs graceful shutdown
func (s *Service) shutdown() error {
	log := logger.WithComponent("service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if s.consumer != nil {
		log.Info().Msg("closing kafka consumer")
		if err := s.consumer.Close(); err != nil {
			log.Error().Err(err).Msg("kafka consumer close error")
		}
	}

	// Wait for in-flight work with a deadline
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}

	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
	}
	if err := s.redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("redis close error")
	}

	log.Info().Msg("alerting service stopped")
	return nil
}

// buildDSN builds the Postgres connection string
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)
}
