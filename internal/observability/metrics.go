package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scrape pipeline.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec // label: outcome={success,failure}
	RowsFetched        prometheus.Counter
	RowsSkipped        prometheus.Counter
	RecordsParsed      prometheus.Counter
	RecordsNew         prometheus.Counter
	DuplicatesFiltered prometheus.Counter
	QueryRetries       prometheus.Counter
	PublishErrors      prometheus.Counter

	RunDuration   prometheus.Histogram
	LastSuccessTS prometheus.Gauge
	RunActive     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RunsTotal,
		m.RowsFetched,
		m.RowsSkipped,
		m.RecordsParsed,
		m.RecordsNew,
		m.DuplicatesFiltered,
		m.QueryRetries,
		m.PublishErrors,
		m.RunDuration,
		m.LastSuccessTS,
		m.RunActive,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		RowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "rows_fetched_total",
			Help:      "Total result rows returned by the SPARQL endpoint.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "rows_skipped_total",
			Help:      "Result rows dropped for missing identity or values.",
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "records_parsed_total",
			Help:      "Measurements parsed from result rows.",
		}),
		RecordsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "records_new_total",
			Help:      "Measurements appended to the dataset.",
		}),
		DuplicatesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "duplicates_filtered_total",
			Help:      "Parsed measurements already present in the dataset.",
		}),
		QueryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "query_retries_total",
			Help:      "SPARQL query attempts beyond the first.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lindas_hydro",
			Name:      "publish_errors_total",
			Help:      "Failed publishes of new records to Kafka.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lindas_hydro",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete scrape run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lindas_hydro",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lindas_hydro",
			Name:      "run_active",
			Help:      "1 while a scrape run is in progress.",
		}),
	}
}
