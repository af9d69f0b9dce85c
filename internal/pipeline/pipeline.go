// Package pipeline orchestrates one scrape run: build query, fetch,
// parse, deduplicate, append, publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
	"github.com/hydrolab/lindas-hydro-etl/internal/observability"
)

// QueryBuilder produces the SPARQL query for the configured stations and
// parameters.
type QueryBuilder interface {
	Build(siteCodes []string, params []domain.Parameter) (string, error)
}

// QueryExecutor runs a query against the endpoint and returns raw rows.
type QueryExecutor interface {
	Query(ctx context.Context, query string) ([]domain.Row, error)
}

// DatasetStore is the persistence collaborator. The pipeline reads the
// existing dataset for dedup and appends new records; it never touches
// the underlying storage format itself.
type DatasetStore interface {
	ReadExisting(ctx context.Context) ([]domain.Measurement, error)
	Append(ctx context.Context, records []domain.Measurement) error
}

// Publisher forwards newly appended records to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, records []domain.Measurement) error
}

// RunResult summarizes a successful run.
type RunResult struct {
	RowsFetched   int `json:"rows_fetched"`
	RowsSkipped   int `json:"rows_skipped"`
	RecordsParsed int `json:"records_parsed"`
	NewRecords    int `json:"new_records"`
}

// Status describes the most recent run for the status endpoint.
type Status struct {
	LastRunAt  time.Time `json:"last_run_at"`
	LastError  string    `json:"last_error,omitempty"`
	LastResult RunResult `json:"last_result"`
	Runs       int       `json:"runs"`
}

// Pipeline runs the scrape sequence. A mutex serializes runs so that only
// one run at a time appends to the shared dataset, even when a scheduled
// run overlaps a slow predecessor.
type Pipeline struct {
	siteCodes []string
	params    []domain.Parameter

	builder   QueryBuilder
	executor  QueryExecutor
	store     DatasetStore
	publisher Publisher // nil disables publishing

	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	ready atomic.Bool

	statusMu sync.Mutex
	status   Status
}

// New creates a Pipeline. Pass a nil publisher to disable downstream
// publishing.
func New(
	siteCodes []string,
	params []domain.Parameter,
	builder QueryBuilder,
	executor QueryExecutor,
	store DatasetStore,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		siteCodes: siteCodes,
		params:    params,
		builder:   builder,
		executor:  executor,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed
// successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful scrape run yet")
	}
	return nil
}

// Run executes one full scrape. It returns the run summary on success. On
// any fatal error the dataset is left untouched beyond what previous runs
// appended, and the error names the stage that failed.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)
	start := time.Now()

	result, err := p.run(ctx)
	p.recordStatus(result, err)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("failure").Inc()
		return RunResult{}, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastSuccessTS.SetToCurrentTime()
	p.ready.Store(true)

	p.logger.Info("run completed",
		"rows_fetched", result.RowsFetched,
		"rows_skipped", result.RowsSkipped,
		"records_parsed", result.RecordsParsed,
		"new_records", result.NewRecords,
		"duration", time.Since(start),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context) (RunResult, error) {
	query, err := p.builder.Build(p.siteCodes, p.params)
	if err != nil {
		return RunResult{}, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.executor.Query(ctx, query)
	if err != nil {
		return RunResult{}, fmt.Errorf("execute query: %w", err)
	}
	p.metrics.RowsFetched.Add(float64(len(rows)))

	records, stats, err := domain.ParseRows(rows, p.params)
	if err != nil {
		return RunResult{}, fmt.Errorf("parse results: %w", err)
	}
	p.metrics.RowsSkipped.Add(float64(stats.Skipped))
	p.metrics.RecordsParsed.Add(float64(stats.Parsed))
	if stats.Skipped > 0 {
		p.logger.Warn("skipped malformed rows", "skipped", stats.Skipped, "rows", stats.Rows)
	}

	existing, err := p.store.ReadExisting(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("read dataset: %w", err)
	}

	newRecords := NewDeduplicator(existing).Filter(records)
	p.metrics.DuplicatesFiltered.Add(float64(len(records) - len(newRecords)))

	if len(newRecords) > 0 {
		if err := p.store.Append(ctx, newRecords); err != nil {
			return RunResult{}, fmt.Errorf("append records: %w", err)
		}
	}

	p.metrics.RecordsNew.Add(float64(len(newRecords)))
	p.publish(ctx, newRecords)

	return RunResult{
		RowsFetched:   len(rows),
		RowsSkipped:   stats.Skipped,
		RecordsParsed: stats.Parsed,
		NewRecords:    len(newRecords),
	}, nil
}

// LastStatus returns a snapshot of the most recent run outcome.
func (p *Pipeline) LastStatus() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

func (p *Pipeline) recordStatus(result RunResult, err error) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastRunAt = time.Now().UTC()
	p.status.LastResult = result
	p.status.Runs++
	p.status.LastError = ""
	if err != nil {
		p.status.LastError = err.Error()
	}
}

// publish forwards new records downstream. The dataset append has already
// succeeded at this point, so a publish failure is logged and counted but
// does not fail the run.
func (p *Pipeline) publish(ctx context.Context, records []domain.Measurement) {
	if p.publisher == nil || len(records) == 0 {
		return
	}
	if err := p.publisher.Publish(ctx, records); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish new records failed", "error", err, "records", len(records))
	}
}
