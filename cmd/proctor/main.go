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
	"time"

	"github.com/google/uuid"

	"github.com/example/proctor-gate/internal/config"
	httptransport "github.com/example/proctor-gate/internal/http"
	"github.com/example/proctor-gate/internal/persistence/sqlite"
	"github.com/example/proctor-gate/internal/proctor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	heartbeats := proctor.NewHeartbeatTracker(proctor.HeartbeatPolicy{
		Interval:            cfg.HeartbeatInterval,
		StalenessMultiplier: cfg.StalenessMultiplier,
	}, logger)

	gate := proctor.NewGate(proctor.GateConfig{
		Validator:     newCredentialValidatorAdapter(storage, storage),
		Store:         newSessionStoreAdapter(storage),
		Audit:         newAuditSinkAdapter(storage),
		Heartbeats:    heartbeats,
		IDGenerator:   uuid.NewString,
		Now:           time.Now,
		MaxViolations: cfg.MaxViolations,
		EventBuffer:   cfg.EventBuffer,
		Logger:        logger,
	})

	if err := gate.Restore(ctx); err != nil {
		logger.Error("failed to restore sessions", "error", err)
		os.Exit(1)
	}

	sweeper := proctor.NewSweeper(gate, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)
	go drainDisqualifications(ctx, gate.Events(), logger)

	sessionHandler := httptransport.NewSessionHandler(gate, logger)
	signalHandler := httptransport.NewSignalHandler(gate, logger)
	statusHandler := httptransport.NewStatusHandler(gate, storage, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions: sessionHandler,
		Signals:  signalHandler,
		Status:   statusHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.SignalRateLimit(cfg.SignalRatePerMinute, cfg.SignalBurst, logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("proctor gate API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// drainDisqualifications forwards disqualification events to the log. A real
// deployment would hand these to the event notification system; the durable
// session record is the source of truth either way.
func drainDisqualifications(ctx context.Context, events <-chan proctor.DisqualificationEvent, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			logger.InfoContext(ctx, "session disqualified",
				"session_id", event.SessionID,
				"scope_id", event.ScopeID,
				"reason", event.Reason,
				"violations", len(event.Violations),
			)
		}
	}
}
