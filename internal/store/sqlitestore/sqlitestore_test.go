package sqlitestore_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
	"github.com/hydrolab/lindas-hydro-etl/internal/store/sqlitestore"
)

func newTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hydro.db")
	s, err := sqlitestore.New(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }
func ptrB(v bool) *bool       { return &v }

func sampleRecords() []domain.Measurement {
	return []domain.Measurement{
		{
			Station:          "2044",
			Timestamp:        time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC),
			Discharge:        ptrF(12.3),
			WaterLevel:       ptrF(429.12),
			DangerLevel:      ptrI(2),
			WaterTemperature: ptrF(8.4),
			IsLiter:          ptrB(false),
		},
		{
			Station:   "2112",
			Timestamp: time.Date(2024, time.April, 26, 15, 20, 0, 0, time.UTC),
			Discharge: ptrF(8.1),
		},
	}
}

func TestAppendThenReadExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleRecords()))

	got, err := s.ReadExisting(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleRecords(), got); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_ConflictingKeyKeepsFirstWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleRecords()[:1]
	require.NoError(t, s.Append(ctx, first))

	conflicting := []domain.Measurement{{
		Station:   first[0].Station,
		Timestamp: first[0].Timestamp,
		Discharge: ptrF(99.9),
	}}
	require.NoError(t, s.Append(ctx, conflicting))

	got, err := s.ReadExisting(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Discharge)
	assert.InEpsilon(t, 12.3, *got[0].Discharge, 0.0001)
}

func TestAppend_EmptyBatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(context.Background(), nil))

	got, err := s.ReadExisting(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadExisting_PreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := sampleRecords()
	require.NoError(t, s.Append(ctx, records[:1]))
	require.NoError(t, s.Append(ctx, records[1:]))

	got, err := s.ReadExisting(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2044", got[0].Station)
	assert.Equal(t, "2112", got[1].Station)
}
