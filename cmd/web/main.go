package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"ocrmill/internal/auth"
	"ocrmill/internal/config"
	"ocrmill/internal/infrastructure"
	"ocrmill/internal/license"
	"ocrmill/internal/metrics"
	"ocrmill/internal/store"
	transport "ocrmill/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	verifier := license.NewHTTPVerifier(cfg.License)
	licenseMgr := license.NewManager(st, verifier, engineMetrics)

	fetcher := auth.NewFetcher(cfg.Directory, engineMetrics)
	authMgr := auth.NewManager(st, fetcher, auth.EnvIdentity{}, engineMetrics)

	router := transport.NewRouter(licenseMgr, authMgr, registry, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.Int("port", cfg.Server.Port),
			slog.String("version", config.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
