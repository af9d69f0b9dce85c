// Command mockendpoint serves a fake SPARQL endpoint that answers hydro
// measurement queries with synthetic data. It parses the station IRIs
// out of the incoming query's VALUES block and returns one binding per
// station, so the scraper can be exercised end to end without touching
// the real LINDAS service.
//
// Usage:
//
//	go run ./cmd/mockendpoint -addr :7878
//	SPARQL_ENDPOINT=http://localhost:7878/query go run ./cmd/scraper
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"
)

var (
	observationRe = regexp.MustCompile(`<([^>]*/river/observation/(\d+))>`)
	selectVarRe   = regexp.MustCompile(`\?(\w+)`)
)

func main() {
	addr := flag.String("addr", ":7878", "listen address")
	flaky := flag.Float64("flaky", 0, "probability of answering 503 (exercises client retries)")
	seed := flag.Uint64("seed", 0, "PRNG seed for reproducible values (0 = random)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	src := rand.NewPCG(*seed, *seed)
	if *seed == 0 {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	h := &handler{
		rng:    rand.New(src),
		flaky:  *flaky,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /query", h)
	mux.Handle("POST /", h)

	logger.Info("mock endpoint listening", "addr", *addr, "flaky", *flaky)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

type handler struct {
	mu     sync.Mutex
	rng    *rand.Rand
	flaky  float64
	logger *slog.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	query := r.PostFormValue("query")
	if query == "" {
		http.Error(w, "missing query parameter", http.StatusBadRequest)
		return
	}

	if h.float() < h.flaky {
		h.logger.Warn("simulating endpoint failure")
		http.Error(w, "simulated outage", http.StatusServiceUnavailable)
		return
	}

	vars := selectVars(query)
	stations := observationRe.FindAllStringSubmatch(query, -1)
	h.logger.Info("answering query", "stations", len(stations), "vars", vars)

	bindings := make([]map[string]term, 0, len(stations))
	now := time.Now().UTC().Truncate(10 * time.Minute)
	for _, m := range stations {
		bindings = append(bindings, h.binding(vars, m[1], now))
	}

	w.Header().Set("Content-Type", "application/sparql-results+json")
	json.NewEncoder(w).Encode(resultSet{ //nolint:errcheck // best-effort mock response
		Head:    head{Vars: vars},
		Results: results{Bindings: bindings},
	})
}

// binding fabricates one row of plausible measurement values for a
// station observation IRI.
func (h *handler) binding(vars []string, stationIRI string, ts time.Time) map[string]term {
	b := make(map[string]term, len(vars))
	for _, v := range vars {
		switch v {
		case "station":
			b[v] = term{Type: "uri", Value: stationIRI}
		case "measurementTime":
			b[v] = term{
				Type:     "literal",
				Value:    ts.Format(time.RFC3339),
				Datatype: "http://www.w3.org/2001/XMLSchema#dateTime",
			}
		case "discharge":
			b[v] = decimal(5 + h.float()*295)
		case "waterLevel":
			b[v] = decimal(300 + h.float()*400)
		case "dangerLevel":
			b[v] = term{
				Type:     "literal",
				Value:    strconv.Itoa(1 + h.intn(3)),
				Datatype: "http://www.w3.org/2001/XMLSchema#integer",
			}
		case "waterTemperature":
			b[v] = decimal(4 + h.float()*18)
		case "isLiter":
			b[v] = term{
				Type:     "literal",
				Value:    "false",
				Datatype: "http://www.w3.org/2001/XMLSchema#boolean",
			}
		}
	}
	return b
}

func decimal(v float64) term {
	return term{
		Type:     "literal",
		Value:    fmt.Sprintf("%.3f", v),
		Datatype: "http://www.w3.org/2001/XMLSchema#decimal",
	}
}

// selectVars pulls the projected variable names off the query's first
// line, preserving order.
func selectVars(query string) []string {
	line := query
	for i := 0; i < len(query); i++ {
		if query[i] == '\n' {
			line = query[:i]
			break
		}
	}
	matches := selectVarRe.FindAllStringSubmatch(line, -1)
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		vars = append(vars, m[1])
	}
	return vars
}

func (h *handler) float() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64()
}

func (h *handler) intn(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.IntN(n)
}

// SPARQL 1.1 JSON results format.

type resultSet struct {
	Head    head    `json:"head"`
	Results results `json:"results"`
}

type head struct {
	Vars []string `json:"vars"`
}

type results struct {
	Bindings []map[string]term `json:"bindings"`
}

type term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
}
