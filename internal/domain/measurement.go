package domain

import (
	"fmt"
	"time"
)

// Measurement is one observation reported by a monitoring station.
// Station and Timestamp are the identity key; every other field is
// optional and nil when the station does not report it or the raw value
// could not be coerced.
type Measurement struct {
	Station          string    `json:"station_id"`
	Timestamp        time.Time `json:"timestamp"`
	Discharge        *float64  `json:"discharge,omitempty"`
	WaterLevel       *float64  `json:"water_level,omitempty"`
	DangerLevel      *int      `json:"danger_level,omitempty"`
	WaterTemperature *float64  `json:"water_temperature,omitempty"`
	IsLiter          *bool     `json:"is_liter,omitempty"`
}

// Key returns the dedup key identifying this observation. Timestamps are
// normalized to UTC so the same instant reported with different offsets
// maps to one key.
func (m Measurement) Key() string {
	return fmt.Sprintf("%s_%s", m.Timestamp.UTC().Format(time.RFC3339), m.Station)
}

// HasValues reports whether the record carries at least one measured
// quantity. Records with only identity fields are not worth persisting.
func (m Measurement) HasValues() bool {
	return m.Discharge != nil ||
		m.WaterLevel != nil ||
		m.DangerLevel != nil ||
		m.WaterTemperature != nil
}
