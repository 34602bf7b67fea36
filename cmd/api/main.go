package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/botdesk/internal/app"
	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/logger"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.L().WithError(err).Fatal("invalid configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.L()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer application.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	application.DocProcessor.Start(workerCtx, cfg.IngestWorkers)
	if _, err := application.DocProcessor.Recover(ctx); err != nil {
		log.WithError(err).Error("could not re-queue interrupted documents")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()
	log.Info("botdesk is running")

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	stopWorkers()
	application.DocProcessor.Wait()
}
