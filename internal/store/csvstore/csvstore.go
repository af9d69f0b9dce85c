// Package csvstore persists the measurement dataset as an append-only
// CSV file, the durable format the downstream analysis tooling consumes.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
)

// columns is the fixed CSV layout. Existing datasets depend on this
// order; do not reorder.
var columns = []string{
	"timestamp",
	"station_id",
	"discharge",
	"water_level",
	"danger_level",
	"water_temperature",
	"is_liter",
}

// Store reads and appends measurement records in a CSV file. It creates
// the file with a header row on first use.
type Store struct {
	path   string
	logger *slog.Logger
}

// New opens (or creates) the dataset at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write dataset header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write dataset header: %w", err)
	}

	s.logger.Info("created new dataset file", "path", s.path)
	return nil
}

// ReadExisting loads all persisted records in file order. Malformed lines
// are skipped, so one corrupt row cannot block future runs.
func (s *Store) ReadExisting(_ context.Context) ([]domain.Measurement, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	// Header row.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	var records []domain.Measurement
	skipped := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		m, ok := recordFromFields(fields)
		if !ok {
			skipped++
			continue
		}
		records = append(records, m)
	}

	if skipped > 0 {
		s.logger.Warn("skipped malformed dataset lines", "skipped", skipped, "path", s.path)
	}
	return records, nil
}

// Append adds records to the end of the dataset.
func (s *Store) Append(_ context.Context, records []domain.Measurement) error {
	if len(records) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open dataset for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, m := range records {
		if err := w.Write(fieldsFromRecord(m)); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append records: %w", err)
	}
	return nil
}

// RemoveDuplicates rewrites the dataset keeping the first record per
// (station, measurement time) key and reports how many lines were
// dropped. It is a maintenance pass; normal runs never produce
// duplicates in the first place.
func (s *Store) RemoveDuplicates(ctx context.Context) (int, error) {
	records, err := s.ReadExisting(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(records))
	kept := make([]domain.Measurement, 0, len(records))
	for _, m := range records {
		key := m.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, m)
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.rewrite(kept); err != nil {
		return 0, err
	}
	s.logger.Info("removed duplicate records", "removed", removed, "path", s.path)
	return removed, nil
}

// rewrite replaces the dataset atomically via a temp file rename.
func (s *Store) rewrite(records []domain.Measurement) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(columns); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite dataset: %w", err)
	}
	for _, m := range records {
		if err := w.Write(fieldsFromRecord(m)); err != nil {
			tmp.Close()
			return fmt.Errorf("rewrite dataset: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rewrite dataset: %w", err)
	}

	return os.Rename(tmp.Name(), s.path)
}

func fieldsFromRecord(m domain.Measurement) []string {
	return []string{
		m.Timestamp.UTC().Format(time.RFC3339),
		m.Station,
		formatFloat(m.Discharge),
		formatFloat(m.WaterLevel),
		formatInt(m.DangerLevel),
		formatFloat(m.WaterTemperature),
		formatBool(m.IsLiter),
	}
}

func recordFromFields(fields []string) (domain.Measurement, bool) {
	if len(fields) != len(columns) {
		return domain.Measurement{}, false
	}

	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil || fields[1] == "" {
		return domain.Measurement{}, false
	}

	return domain.Measurement{
		Timestamp:        ts,
		Station:          fields[1],
		Discharge:        parseFloat(fields[2]),
		WaterLevel:       parseFloat(fields[3]),
		DangerLevel:      parseInt(fields[4]),
		WaterTemperature: parseFloat(fields[5]),
		IsLiter:          parseBool(fields[6]),
	}, true
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}
