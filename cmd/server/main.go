package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/zynqcloud/face-enroll/internal/auth"
	"github.com/zynqcloud/face-enroll/internal/cleanup"
	"github.com/zynqcloud/face-enroll/internal/config"
	"github.com/zynqcloud/face-enroll/internal/handler"
	"github.com/zynqcloud/face-enroll/internal/identity"
	"github.com/zynqcloud/face-enroll/internal/ledger"
	"github.com/zynqcloud/face-enroll/internal/store"
	"github.com/zynqcloud/face-enroll/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	fs := pflag.NewFlagSet("face-enroll", pflag.ExitOnError)
	config.BindFlags(fs, cfg)
	fs.Parse(os.Args[1:]) //nolint:errcheck

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if cfg.ServiceToken == "" {
		logger.Warn("ENROLL_SERVICE_TOKEN is not set; /metrics and /healthz/ready are open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	cred, err := auth.ParseCredential([]byte(cfg.FirebaseKey))
	if err != nil {
		logger.Error("invalid FIREBASE_KEY", "err", err)
		os.Exit(1)
	}
	verifier := auth.NewFirebaseVerifier(ctx, cred, logger)

	backend, err := store.NewLocal(cfg.RootDir)
	if err != nil {
		logger.Error("failed to initialise storage root", "err", err)
		os.Exit(1)
	}

	led, err := ledger.Open(cfg.Ledger())
	if err != nil {
		logger.Error("failed to open enrollment ledger", "path", cfg.Ledger(), "err", err)
		os.Exit(1)
	}
	defer led.Close() //nolint:errcheck

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled, cfg.OTELEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}

	sweeper := cleanup.NewSweeper(filepath.Join(backend.Root(), store.StagingDir), cfg.StagingTTL, logger)
	go sweeper.Run(ctx, cfg.CleanupInterval)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.New(cfg, handler.Deps{
			Auth:     verifier,
			Resolver: identity.NewResolver(cfg.InstitutionDomain),
			Enroller: store.NewEnroller(backend, store.WithImageCheck(cfg.RequireImage)),
			Storage:  backend,
			Ledger:   led,
		}, logger),
		// Five base64 images fit well inside a minute even on slow uplinks.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("enrollment service starting",
			"port", cfg.Port, "root", backend.Root(), "project", cred.ProjectID, "domain", cfg.InstitutionDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("trace flush failed", "err", err)
	}
	logger.Info("enrollment service stopped")
}
