// Package main runs the coverage layer HTTP gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/paracipher/coverage_layer/internal/app"
	"github.com/paracipher/coverage_layer/internal/app/httpapi"
	"github.com/paracipher/coverage_layer/internal/app/metrics"
	"github.com/paracipher/coverage_layer/internal/config"
	"github.com/paracipher/coverage_layer/internal/middleware"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("gateway exited")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	application, err := app.New(app.Stores{}, app.Options{
		AuthSecret:    cfg.Auth.Secret,
		TokenExpiry:   cfg.TokenExpiry(),
		SweepInterval: cfg.Sweep.Interval,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	api, err := httpapi.NewHandler(application, httpapi.Options{
		AuditMaxEntries: cfg.Audit.MaxEntries,
		AuditLogPath:    cfg.Audit.LogPath,
	}, log)
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	cors := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	handler := cors.Handler(limiter.Handler(metrics.InstrumentHandler(mux)))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("gateway listening on %s (env=%s)", addr, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}

	log.Info("gateway stopped")
	return nil
}
