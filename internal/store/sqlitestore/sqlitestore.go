// Package sqlitestore persists the measurement dataset in SQLite for
// deployments that prefer queryable storage over the flat CSV file.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
)

// The UNIQUE constraint mirrors the dedup key; combined with ON CONFLICT
// DO NOTHING it enforces first-write-wins even if two processes share the
// database.
const schema = `
CREATE TABLE IF NOT EXISTS measurements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	station TEXT NOT NULL,
	measured_at TEXT NOT NULL,
	discharge REAL,
	water_level REAL,
	danger_level INTEGER,
	water_temperature REAL,
	is_liter INTEGER,
	UNIQUE(station, measured_at)
);
CREATE INDEX IF NOT EXISTS idx_measurements_station ON measurements(station);
CREATE INDEX IF NOT EXISTS idx_measurements_measured_at ON measurements(measured_at);`

// Store implements the dataset over a SQLite database file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at path and ensures the schema.
func New(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadExisting loads all persisted records in insertion order.
func (s *Store) ReadExisting(ctx context.Context) ([]domain.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station, measured_at, discharge, water_level, danger_level, water_temperature, is_liter
		FROM measurements
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var records []domain.Measurement
	for rows.Next() {
		var (
			m          domain.Measurement
			measuredAt string
			isLiter    sql.NullBool
			danger     sql.NullInt64
			discharge  sql.NullFloat64
			level      sql.NullFloat64
			temp       sql.NullFloat64
		)
		if err := rows.Scan(&m.Station, &measuredAt, &discharge, &level, &danger, &temp, &isLiter); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, measuredAt)
		if err != nil {
			s.logger.Warn("skipping row with bad measured_at", "station", m.Station, "measured_at", measuredAt)
			continue
		}
		m.Timestamp = ts

		if discharge.Valid {
			m.Discharge = &discharge.Float64
		}
		if level.Valid {
			m.WaterLevel = &level.Float64
		}
		if danger.Valid {
			v := int(danger.Int64)
			m.DangerLevel = &v
		}
		if temp.Valid {
			m.WaterTemperature = &temp.Float64
		}
		if isLiter.Valid {
			m.IsLiter = &isLiter.Bool
		}

		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return records, nil
}

// Append inserts records inside a single transaction. Records whose key
// already exists are silently ignored (first-write-wins).
func (s *Store) Append(ctx context.Context, records []domain.Measurement) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO measurements(station, measured_at, discharge, water_level, danger_level, water_temperature, is_liter)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station, measured_at) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range records {
		_, err := stmt.ExecContext(ctx,
			m.Station,
			m.Timestamp.UTC().Format(time.RFC3339),
			nullFloat(m.Discharge),
			nullFloat(m.WaterLevel),
			nullInt(m.DangerLevel),
			nullFloat(m.WaterTemperature),
			nullBool(m.IsLiter),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert measurement for station %s: %w", m.Station, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
