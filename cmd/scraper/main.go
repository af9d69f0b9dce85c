// Command scraper collects hydrological measurements from the LINDAS
// SPARQL endpoint and appends the new ones to the configured dataset.
//
// With no SCHEDULE it runs a single scrape and exits, which fits
// cron-style and cloud-function deployments. With a SCHEDULE cron
// expression it stays up, scrapes on schedule, and serves health,
// readiness, status, and metrics endpoints.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/hydrolab/lindas-hydro-etl/internal/adapter/http"
	kafkaadapter "github.com/hydrolab/lindas-hydro-etl/internal/adapter/kafka"
	"github.com/hydrolab/lindas-hydro-etl/internal/config"
	"github.com/hydrolab/lindas-hydro-etl/internal/observability"
	"github.com/hydrolab/lindas-hydro-etl/internal/pipeline"
	"github.com/hydrolab/lindas-hydro-etl/internal/sparql"
	"github.com/hydrolab/lindas-hydro-etl/internal/store/csvstore"
	"github.com/hydrolab/lindas-hydro-etl/internal/store/sqlitestore"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Optional .env file for local development; env vars win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, closers, err := newStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open dataset store", "error", err)
		return 1
	}

	var publisher pipeline.Publisher
	if cfg.KafkaEnabled() {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		publisher = pub
		closers = append(closers, pub)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer closeAll(closers, logger)

	p := pipeline.New(
		cfg.SiteCodes,
		cfg.Parameters,
		sparql.NewQueryBuilder(cfg.BaseIRI, cfg.Graph),
		sparql.NewClient(cfg, metrics, logger),
		store,
		publisher,
		logger,
		metrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("scraper starting",
		"endpoint", cfg.SPARQLEndpoint,
		"sites", cfg.SiteCodes,
		"parameters", len(cfg.Parameters),
		"store", cfg.StoreBackend,
		"schedule", cfg.Schedule,
	)

	if cfg.Schedule == "" {
		if _, err := p.Run(ctx); err != nil {
			logger.Error("scrape run failed", "error", err)
			return 1
		}
		return 0
	}

	return runScheduled(ctx, cfg, p, logger)
}

// runScheduled keeps the process up, scraping on the cron schedule and
// serving the HTTP endpoints until a signal arrives.
func runScheduled(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// First scrape right away; failures are logged and retried on the
	// next scheduled run rather than killing the service.
	if _, err := p.Run(ctx); err != nil {
		logger.Error("initial scrape run failed", "error", err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if _, err := p.Run(ctx); err != nil {
			logger.Error("scheduled scrape run failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid SCHEDULE", "schedule", cfg.Schedule, "error", err)
		return 1
	}
	c.Start()
	logger.Info("scheduler started", "schedule", cfg.Schedule)

	<-ctx.Done()
	logger.Info("shutting down")

	cronCtx := c.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}

func newStore(cfg *config.Config, logger *slog.Logger) (pipeline.DatasetStore, []io.Closer, error) {
	if cfg.StoreBackend == "sqlite" {
		st, err := sqlitestore.New(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, []io.Closer{st}, nil
	}

	st, err := csvstore.New(cfg.OutputPath(), logger)
	if err != nil {
		return nil, nil, err
	}
	return st, nil, nil
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
}
