package sparql

import (
	"strings"
	"testing"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseIRI = "https://environment.ld.admin.ch/foen/hydro"
	testGraph   = "https://lindas.admin.ch/foen/hydro"
)

func newTestBuilder() *QueryBuilder {
	return NewQueryBuilder(testBaseIRI, testGraph)
}

func TestBuild_BatchesAllStations(t *testing.T) {
	q, err := newTestBuilder().Build([]string{"2044", "2112"}, domain.AllParameters)
	require.NoError(t, err)

	assert.Contains(t, q, "<"+testBaseIRI+"/river/observation/2044>")
	assert.Contains(t, q, "<"+testBaseIRI+"/river/observation/2112>")
	assert.Contains(t, q, "FROM <"+testGraph+">")
	assert.Equal(t, 1, strings.Count(q, "VALUES ?station"))
}

func TestBuild_SelectsColumnsInCanonicalOrder(t *testing.T) {
	// Request in scrambled order; the SELECT clause must not follow it.
	params := []domain.Parameter{
		domain.ParamWaterTemperature,
		domain.ParamDischarge,
		domain.ParamStation,
	}

	q, err := newTestBuilder().Build([]string{"2044"}, params)
	require.NoError(t, err)

	firstLine := strings.SplitN(q, "\n", 2)[0]
	assert.Equal(t, "SELECT ?station ?measurementTime ?discharge ?waterTemperature", firstLine)
}

func TestBuild_IsDeterministic(t *testing.T) {
	sites := []string{"2044", "2112", "2491"}
	first, err := newTestBuilder().Build(sites, domain.AllParameters)
	require.NoError(t, err)

	for range 10 {
		q, err := newTestBuilder().Build(sites, domain.AllParameters)
		require.NoError(t, err)
		assert.Equal(t, first, q)
	}
}

func TestBuild_IdentityColumnsAlwaysPresent(t *testing.T) {
	q, err := newTestBuilder().Build([]string{"2044"}, []domain.Parameter{domain.ParamDischarge})
	require.NoError(t, err)

	assert.Contains(t, q, "?measurementTime")
	assert.Contains(t, q, "?station")
	// measurementTime is part of the identity key and must not be optional.
	assert.Contains(t, q, "?station <"+testBaseIRI+"/dimension/measurementTime> ?measurementTime .")
	assert.Contains(t, q, "OPTIONAL { ?station <"+testBaseIRI+"/dimension/discharge> ?discharge . }")
}

func TestBuild_IsLiterUsesLegacyPredicate(t *testing.T) {
	q, err := newTestBuilder().Build([]string{"2044"}, []domain.Parameter{domain.ParamIsLiter})
	require.NoError(t, err)
	assert.Contains(t, q, "<http://example.com/isLiter>")
}

func TestBuild_EmptyInputs(t *testing.T) {
	var cfgErr *domain.ConfigError

	_, err := newTestBuilder().Build(nil, domain.AllParameters)
	require.ErrorAs(t, err, &cfgErr)

	_, err = newTestBuilder().Build([]string{"2044"}, nil)
	require.ErrorAs(t, err, &cfgErr)
}

func TestBuild_RejectsBadSiteCodes(t *testing.T) {
	var cfgErr *domain.ConfigError

	for _, code := range []string{"abc", "0", "12345", "2044; DROP"} {
		_, err := newTestBuilder().Build([]string{code}, domain.AllParameters)
		require.ErrorAs(t, err, &cfgErr, "code %q", code)
	}
}

func TestBuild_RejectsUnknownParameter(t *testing.T) {
	var cfgErr *domain.ConfigError
	_, err := newTestBuilder().Build([]string{"2044"}, []domain.Parameter{domain.Parameter("salinity")})
	require.ErrorAs(t, err, &cfgErr)
}
