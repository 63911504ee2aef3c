package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/korjavin/tienda/internal/api"
	"github.com/korjavin/tienda/internal/catalog"
	"github.com/korjavin/tienda/internal/config"
	"github.com/korjavin/tienda/internal/metrics"
	"github.com/korjavin/tienda/internal/middleware"
	"github.com/korjavin/tienda/internal/notify"
	"github.com/korjavin/tienda/internal/order"
	"github.com/korjavin/tienda/internal/session"
	"github.com/korjavin/tienda/internal/store"
)

func main() {
	config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)

	apiKeys := middleware.ParseAPIKeys(strings.Join(cfg.Auth.APIKeys, ","))
	if len(apiKeys) == 0 {
		slog.Warn("API_KEYS not set, all requests will be accepted without authentication")
	}

	slog.Info("opening store", "data_dir", cfg.Data.Dir)
	s, err := store.OpenReadOnly(cfg.Data.Dir)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	manifest, err := store.ReadManifest(cfg.Data.Dir)
	if err != nil {
		slog.Warn("manifest not found or unreadable", "error", err)
		manifest = nil
	} else {
		slog.Info("manifest loaded",
			"schema_version", manifest.SchemaVersion,
			"source", manifest.Source,
			"stored", manifest.StoredCount,
			"build_time", manifest.BuildTime,
		)
	}

	rows, err := s.Rows()
	if err != nil {
		slog.Error("failed to read catalog rows", "error", err)
		os.Exit(1)
	}
	idx, stats := catalog.Build(rows)
	slog.Info("catalog loaded",
		"rows", stats.Rows,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"buckets", len(idx.Initials()),
	)

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.Notify.TwilioEnabled() {
		tw, err := notify.NewTwilioNotifier(cfg.Notify.Twilio())
		if err != nil {
			slog.Error("failed to configure twilio", "error", err)
			os.Exit(1)
		}
		notifier = tw
		slog.Info("orders will be sent through twilio", "destination", cfg.Notify.Destination)
	} else {
		slog.Warn("twilio not configured, orders will only be logged")
	}

	reg := metrics.NewRegistry()
	reg.Counter("catalog_rows_skipped").Add(int64(stats.Skipped))

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, apiKeys, &api.Handler{
		Catalog:   idx,
		Suggester: s,
		Manifest:  manifest,
		Sessions:  session.NewStore(cfg.Session.IdleTTL),
		Orders:    order.NewDispatcher(notifier, cfg.Notify.Destination),
		Metrics:   reg,
	})

	// outer to inner: RequestID -> Logging -> CORS -> RateLimit -> mux
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.CORS(cfg.CORS.Origins),
		middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TrustProxy),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exited")
}
