package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/tie-bridge/internal/config"
	"github.com/telhawk-systems/tie-bridge/internal/history"
	"github.com/telhawk-systems/tie-bridge/internal/logging"
	"github.com/telhawk-systems/tie-bridge/internal/metrics"
	"github.com/telhawk-systems/tie-bridge/internal/repcache"
	"github.com/telhawk-systems/tie-bridge/internal/sink"
	"github.com/telhawk-systems/tie-bridge/internal/watcher"
	"github.com/telhawk-systems/tie-bridge/messaging"
	natsclient "github.com/telhawk-systems/tie-bridge/messaging/nats"
	"github.com/telhawk-systems/tie-bridge/tie"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Subscribe to reputation change events and run until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	slog.Info("starting tiewatch",
		slog.String("nats_url", cfg.NATS.URL),
		slog.Bool("cache", cfg.Redis.Enabled),
		slog.Bool("history", cfg.Postgres.Enabled),
		slog.Bool("index", cfg.OpenSearch.Enabled),
		slog.Int("metrics_port", cfg.Metrics.Port),
	)

	fabric, err := natsclient.NewClient(natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
		Timeout:       5 * time.Second,
		Username:      cfg.NATS.Username,
		Password:      cfg.NATS.Password,
		Token:         cfg.NATS.Token,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to fabric: %w", err)
	}
	defer fabric.Close()

	var latest watcher.LatestCache
	if cfg.Redis.Enabled {
		cache, err := repcache.New(cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			return fmt.Errorf("failed to initialize reputation cache: %w", err)
		}
		defer cache.Close()
		latest = cache
		slog.Info("reputation cache enabled", slog.String("redis_url", cfg.Redis.URL))
	}

	var store watcher.HistoryStore
	if cfg.Postgres.Enabled {
		connString := cfg.Postgres.ConnString()
		if err := history.RunMigrations(connString, cfg.Postgres.MigrationsDir); err != nil {
			return err
		}
		slog.Info("database migrations completed")

		repo, err := history.NewPostgresRepository(cmd.Context(), connString)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer repo.Close()
		store = repo
	}

	var indexer watcher.ChangeIndexer
	if cfg.OpenSearch.Enabled {
		osSink, err := sink.New(cfg.OpenSearch)
		if err != nil {
			return fmt.Errorf("failed to initialize opensearch sink: %w", err)
		}
		indexer = osSink
		slog.Info("change index enabled", slog.String("opensearch_url", cfg.OpenSearch.URL))
	}

	handler := watcher.New(logger, latest, store, indexer)

	client := tie.NewClient(countingSubscriber{Subscriber: fabric})
	defer client.Close()

	if _, err := client.AddFileReputationChangeCallback(handler); err != nil {
		return fmt.Errorf("failed to subscribe to file reputation changes: %w", err)
	}
	if _, err := client.AddCertificateReputationChangeCallback(handler); err != nil {
		return fmt.Errorf("failed to subscribe to certificate reputation changes: %w", err)
	}
	slog.Info("subscribed to reputation change subjects",
		slog.String("file_subject", messaging.SubjectFileRepChange),
		slog.String("cert_subject", messaging.SubjectCertRepChange),
	)

	httpServer := metricsServer(cfg.Metrics.Port, fabric)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", logging.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", slog.String("signal", sig.String()))

	if err := fabric.Drain(); err != nil {
		slog.Warn("fabric drain failed", logging.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown failed", logging.Error(err))
	}

	return nil
}

// countingSubscriber counts events whose decode or normalization failed.
// The watcher returns nil for every delivered change, so a handler error on
// these subjects is always a normalization failure.
type countingSubscriber struct {
	messaging.Subscriber
}

func (s countingSubscriber) Subscribe(subject string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	return s.Subscriber.Subscribe(subject, func(ctx context.Context, msg *messaging.Message) error {
		err := handler(ctx, msg)
		if err != nil {
			metrics.NormalizeErrors.WithLabelValues(msg.Subject).Inc()
		}
		return err
	})
}

func metricsServer(port int, fabric messaging.Client) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := messaging.CheckClientHealth(r.Context(), fabric)

		w.Header().Set("Content-Type", "application/json")
		if !status.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
