package pipeline_test

import (
	"testing"
	"time"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
	"github.com/hydrolab/lindas-hydro-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t1 = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	t2 = time.Date(2024, time.April, 26, 15, 20, 0, 0, time.UTC)
)

func record(station string, ts time.Time, discharge float64) domain.Measurement {
	return domain.Measurement{Station: station, Timestamp: ts, Discharge: &discharge}
}

func keys(ms []domain.Measurement) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Key()
	}
	return out
}

func TestFilter_DuplicateRowInSameBatch(t *testing.T) {
	batch := []domain.Measurement{
		record("2044", t1, 12.3),
		record("2112", t2, 8.1),
		record("2044", t1, 12.3),
	}

	out := pipeline.NewDeduplicator(nil).Filter(batch)
	require.Len(t, out, 2)
	assert.ElementsMatch(t,
		[]string{record("2044", t1, 0).Key(), record("2112", t2, 0).Key()},
		keys(out),
	)
}

func TestFilter_LastWriteWinsWithinBatch(t *testing.T) {
	batch := []domain.Measurement{
		record("2044", t1, 1.0),
		record("2044", t1, 2.0),
	}

	out := pipeline.NewDeduplicator(nil).Filter(batch)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Discharge)
	assert.InEpsilon(t, 2.0, *out[0].Discharge, 0.0001)
}

func TestFilter_AgainstExistingDataset(t *testing.T) {
	existing := []domain.Measurement{record("2044", t1, 12.3)}
	batch := []domain.Measurement{
		record("2044", t1, 12.3),
		record("2112", t2, 8.1),
	}

	out := pipeline.NewDeduplicator(existing).Filter(batch)
	require.Len(t, out, 1)
	assert.Equal(t, "2112", out[0].Station)
}

func TestFilter_FirstWriteWinsAcrossRuns(t *testing.T) {
	// A key already persisted keeps its stored values even when the new
	// batch carries different ones.
	existing := []domain.Measurement{record("2044", t1, 12.3)}
	batch := []domain.Measurement{record("2044", t1, 99.9)}

	out := pipeline.NewDeduplicator(existing).Filter(batch)
	assert.Empty(t, out)
}

func TestFilter_IsIdempotent(t *testing.T) {
	d := pipeline.NewDeduplicator(nil)
	batch := []domain.Measurement{
		record("2044", t1, 12.3),
		record("2112", t2, 8.1),
	}

	first := d.Filter(batch)
	assert.Len(t, first, 2)

	second := d.Filter(batch)
	assert.Empty(t, second)
}

func TestFilter_NormalizesTimezonesInKeys(t *testing.T) {
	zurich := time.FixedZone("CEST", 2*60*60)
	existing := []domain.Measurement{record("2044", t1, 12.3)}
	batch := []domain.Measurement{record("2044", t1.In(zurich), 12.3)}

	out := pipeline.NewDeduplicator(existing).Filter(batch)
	assert.Empty(t, out)
}

func TestFilter_PreservesBatchOrder(t *testing.T) {
	batch := []domain.Measurement{
		record("2044", t1, 1),
		record("2112", t1, 2),
		record("2491", t1, 3),
	}

	out := pipeline.NewDeduplicator(nil).Filter(batch)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"2044", "2112", "2491"},
		[]string{out[0].Station, out[1].Station, out[2].Station})
}
