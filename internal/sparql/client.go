package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydrolab/lindas-hydro-etl/internal/config"
	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
	"github.com/hydrolab/lindas-hydro-etl/internal/observability"
)

const resultsContentType = "application/sparql-results+json"

// Client executes queries against a SPARQL endpoint over HTTP, retrying
// transient failures with exponential backoff. The clock is injectable so
// tests can drive the backoff without real sleeps.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a client for the configured endpoint and retry policy.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		endpoint: cfg.SPARQLEndpoint,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		maxAttempts: cfg.RetryMaxAttempts,
		baseDelay:   cfg.RetryDelay,
		clock:       clockwork.NewRealClock(),
		metrics:     metrics,
		logger:      logger,
	}
}

// Query runs the query and returns the result rows in endpoint order.
//
// Transient failures (network errors, timeouts, 5xx responses) are
// retried up to the configured attempt budget, sleeping baseDelay before
// the first retry and doubling before each one after. A 4xx response
// means the query itself is bad and fails immediately. A response that
// cannot be decoded as SPARQL JSON results is a *domain.ParseError; every
// other failure surfaces as a *domain.TransportError wrapping the last
// cause.
func (c *Client) Query(ctx context.Context, query string) ([]domain.Row, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.QueryRetries.Inc()
			c.logger.Warn("query failed, retrying",
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"delay", delay,
				"error", lastErr,
			)
			if !c.sleep(ctx, delay) {
				return nil, ctx.Err()
			}
			delay *= 2
		}

		rows, err := c.doQuery(ctx, query)
		if err == nil {
			c.logger.Debug("query succeeded", "attempt", attempt, "rows", len(rows))
			return rows, nil
		}

		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			return nil, err
		}
		if !retryable(err) {
			return nil, &domain.TransportError{Attempts: attempt, Err: err}
		}
		lastErr = err
	}

	return nil, &domain.TransportError{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) doQuery(ctx context.Context, query string) ([]domain.Row, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var rs resultSet
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return nil, &domain.ParseError{Reason: fmt.Sprintf("decode results: %v", err)}
	}
	if rs.Results.Bindings == nil {
		return nil, &domain.ParseError{Reason: "response carries no results.bindings"}
	}

	rows := make([]domain.Row, len(rs.Results.Bindings))
	for i, binding := range rs.Results.Bindings {
		row := make(domain.Row, len(binding))
		for name, t := range binding {
			row[name] = t.Value
		}
		rows[i] = row
	}
	return rows, nil
}

// sleep waits for the backoff delay on the injected clock, returning
// false if the context is cancelled first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// retryable classifies an attempt failure. Network-level errors and
// 5xx responses are expected to resolve on retry; a 4xx response will
// fail the same way every time.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("endpoint returned status %d", e.code)
	}
	return fmt.Sprintf("endpoint returned status %d: %s", e.code, e.body)
}

// SPARQL 1.1 JSON results format.

type resultSet struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]term `json:"bindings"`
	} `json:"results"`
}

type term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
}
