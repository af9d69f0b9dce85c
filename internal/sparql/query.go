// Package sparql builds and executes queries against a SPARQL endpoint
// speaking the standard HTTP protocol with JSON results.
package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
)

// QueryBuilder constructs SELECT queries for a batch of monitoring
// stations. All stations go into a single query via a VALUES block, one
// result row per station.
type QueryBuilder struct {
	baseIRI string
	graph   string
}

// NewQueryBuilder creates a builder resolving identifiers under the given
// base IRI, scoped to the given named graph.
func NewQueryBuilder(baseIRI, graph string) *QueryBuilder {
	return &QueryBuilder{
		baseIRI: strings.TrimRight(baseIRI, "/"),
		graph:   graph,
	}
}

// Build produces the query for the given station codes and parameters.
//
// The SELECT column order is deterministic: station and measurementTime
// always come first (every record needs its identity key even when not
// explicitly requested), followed by the remaining requested parameters
// in canonical order. Downstream parsing relies on the variable names,
// but a stable order keeps query strings reproducible across runs.
func (b *QueryBuilder) Build(siteCodes []string, params []domain.Parameter) (string, error) {
	if len(siteCodes) == 0 {
		return "", &domain.ConfigError{Reason: "at least one station code is required"}
	}
	if len(params) == 0 {
		return "", &domain.ConfigError{Reason: "at least one parameter is required"}
	}

	for _, code := range siteCodes {
		if err := validateSiteCode(code); err != nil {
			return "", err
		}
	}

	columns, err := selectColumns(params)
	if err != nil {
		return "", err
	}

	var q strings.Builder

	q.WriteString("SELECT")
	for _, p := range columns {
		q.WriteString(" ?")
		q.WriteString(p.Variable())
	}
	q.WriteByte('\n')

	fmt.Fprintf(&q, "FROM <%s>\n", b.graph)
	q.WriteString("WHERE {\n")

	q.WriteString("  VALUES ?station {\n")
	for _, code := range siteCodes {
		fmt.Fprintf(&q, "    <%s/river/observation/%s>\n", b.baseIRI, code)
	}
	q.WriteString("  }\n")

	for _, p := range columns {
		switch p {
		case domain.ParamStation:
			// bound by the VALUES block
		case domain.ParamMeasurementTime:
			fmt.Fprintf(&q, "  ?station <%s> ?%s .\n", p.PredicateIRI(b.baseIRI), p.Variable())
		default:
			fmt.Fprintf(&q, "  OPTIONAL { ?station <%s> ?%s . }\n", p.PredicateIRI(b.baseIRI), p.Variable())
		}
	}

	q.WriteString("}")

	return q.String(), nil
}

// selectColumns orders the requested parameters canonically with the
// identity columns forced in, rejecting anything outside the enumeration.
func selectColumns(params []domain.Parameter) ([]domain.Parameter, error) {
	requested := make(map[domain.Parameter]bool, len(params)+2)
	for _, p := range params {
		if _, err := domain.ParseParameter(string(p)); err != nil {
			return nil, err
		}
		requested[p] = true
	}
	requested[domain.ParamStation] = true
	requested[domain.ParamMeasurementTime] = true

	columns := make([]domain.Parameter, 0, len(requested))
	for _, p := range domain.AllParameters {
		if requested[p] {
			columns = append(columns, p)
		}
	}
	return columns, nil
}

// validateSiteCode enforces the FOEN station code format: a 1-4 digit
// number. Anything else would splice garbage into the observation IRI.
func validateSiteCode(code string) error {
	n, err := strconv.Atoi(code)
	if err != nil {
		return &domain.ConfigError{Reason: fmt.Sprintf("site code %q is not numeric", code)}
	}
	if n < 1 || n > 9999 {
		return &domain.ConfigError{Reason: fmt.Sprintf("site code %q outside the 1-9999 range", code)}
	}
	return nil
}
