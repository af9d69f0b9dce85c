package domain_test

import (
	"testing"
	"time"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const obsBase = "https://environment.ld.admin.ch/foen/hydro/river/observation/"

func allParams() []domain.Parameter {
	return domain.AllParameters
}

func TestParseRows_FullRow(t *testing.T) {
	rows := []domain.Row{
		{
			"station":          obsBase + "2044",
			"measurementTime":  "2024-04-26T15:10:00Z",
			"discharge":        "12.3",
			"waterLevel":       "429.12",
			"dangerLevel":      "2",
			"waterTemperature": "8.4",
			"isLiter":          "false",
		},
	}

	ms, stats, err := domain.ParseRows(rows, allParams())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 0, stats.Skipped)

	m := ms[0]
	assert.Equal(t, "2044", m.Station)
	assert.Equal(t, time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC), m.Timestamp)
	require.NotNil(t, m.Discharge)
	assert.InEpsilon(t, 12.3, *m.Discharge, 0.0001)
	require.NotNil(t, m.WaterLevel)
	assert.InEpsilon(t, 429.12, *m.WaterLevel, 0.0001)
	require.NotNil(t, m.DangerLevel)
	assert.Equal(t, 2, *m.DangerLevel)
	require.NotNil(t, m.WaterTemperature)
	assert.InEpsilon(t, 8.4, *m.WaterTemperature, 0.0001)
	require.NotNil(t, m.IsLiter)
	assert.False(t, *m.IsLiter)
}

func TestParseRows_RowMissingTimeIsSkipped(t *testing.T) {
	rows := []domain.Row{
		{"station": obsBase + "2044", "measurementTime": "2024-04-26T15:10:00Z", "discharge": "12.3"},
		{"station": obsBase + "2112", "discharge": "8.1"},
		{"station": obsBase + "2491", "measurementTime": "2024-04-26T15:20:00Z", "discharge": "3.7"},
	}

	ms, stats, err := domain.ParseRows(rows, allParams())
	require.NoError(t, err)
	assert.Len(t, ms, 2)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{"2044", "2491"}, []string{ms[0].Station, ms[1].Station})
}

func TestParseRows_BadOptionalValueLeavesFieldUnset(t *testing.T) {
	rows := []domain.Row{
		{
			"station":         obsBase + "2044",
			"measurementTime": "2024-04-26T15:10:00Z",
			"discharge":       "not-a-number",
			"waterLevel":      "429.12",
			"dangerLevel":     "9", // outside the 0-5 scale
		},
	}

	ms, _, err := domain.ParseRows(rows, allParams())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Nil(t, ms[0].Discharge)
	assert.Nil(t, ms[0].DangerLevel)
	require.NotNil(t, ms[0].WaterLevel)
}

func TestParseRows_BadTimestampDropsRow(t *testing.T) {
	rows := []domain.Row{
		{"station": obsBase + "2044", "measurementTime": "yesterday", "discharge": "12.3"},
		{"station": obsBase + "2112", "measurementTime": "2024-04-26T15:10:00Z", "discharge": "8.1"},
	}

	ms, stats, err := domain.ParseRows(rows, allParams())
	require.NoError(t, err)
	assert.Len(t, ms, 1)
	assert.Equal(t, 1, stats.Skipped)
}

func TestParseRows_RowWithoutAnyValuesIsSkipped(t *testing.T) {
	rows := []domain.Row{
		{"station": obsBase + "2044", "measurementTime": "2024-04-26T15:10:00Z"},
	}

	ms, stats, err := domain.ParseRows(rows, allParams())
	require.NoError(t, err)
	assert.Empty(t, ms)
	assert.Equal(t, 1, stats.Skipped)
}

func TestParseRows_IdentityOnlyParameterSetKeepsRows(t *testing.T) {
	rows := []domain.Row{
		{"station": obsBase + "2044", "measurementTime": "2024-04-26T15:10:00Z"},
	}
	params := []domain.Parameter{domain.ParamStation, domain.ParamMeasurementTime}

	ms, _, err := domain.ParseRows(rows, params)
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}

func TestParseRows_StructurallyUnusableResult(t *testing.T) {
	rows := []domain.Row{
		{"s": "a", "p": "b", "o": "c"},
		{"s": "d", "p": "e", "o": "f"},
	}

	_, _, err := domain.ParseRows(rows, allParams())
	require.Error(t, err)
	var parseErr *domain.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseRows_EmptyResultIsValid(t *testing.T) {
	ms, stats, err := domain.ParseRows(nil, allParams())
	require.NoError(t, err)
	assert.Empty(t, ms)
	assert.Equal(t, 0, stats.Rows)
}

func TestParseRows_OffsetTimestampNormalizesKey(t *testing.T) {
	rows := []domain.Row{
		{"station": obsBase + "2044", "measurementTime": "2024-04-26T17:10:00+02:00", "discharge": "12.3"},
	}

	ms, _, err := domain.ParseRows(rows, allParams())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "2024-04-26T15:10:00Z_2044", ms[0].Key())
}

func TestStationCodeFromIRI(t *testing.T) {
	assert.Equal(t, "2044", domain.StationCodeFromIRI(obsBase+"2044"))
	assert.Equal(t, "2112", domain.StationCodeFromIRI("2112"))
	assert.Equal(t, "", domain.StationCodeFromIRI(obsBase))
}

func TestParseParameter(t *testing.T) {
	p, err := domain.ParseParameter("waterLevel")
	require.NoError(t, err)
	assert.Equal(t, domain.ParamWaterLevel, p)

	_, err = domain.ParseParameter("salinity")
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParameterPredicateIRI(t *testing.T) {
	base := "https://environment.ld.admin.ch/foen/hydro"
	assert.Equal(t, base+"/dimension/discharge", domain.ParamDischarge.PredicateIRI(base))
	assert.Equal(t, "http://example.com/isLiter", domain.ParamIsLiter.PredicateIRI(base))
}
