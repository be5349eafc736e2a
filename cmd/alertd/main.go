package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/config"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/logger"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger.Init(cfg.Log.Level)
	log := logger.WithComponent("main")

	svc, err := service.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- svc.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
		if err := <-errChan; err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("service error")
		}
	}

	log.Info().Msg("exited")
}
