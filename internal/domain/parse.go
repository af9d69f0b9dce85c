package domain

import (
	"strconv"
	"strings"
	"time"
)

// Row is one solution from the tabular query result, mapping a selected
// variable name to its raw string value.
type Row map[string]string

// ParseStats counts row-level outcomes of a parse. Skipped rows are data
// defects (missing identity, no usable values), not errors.
type ParseStats struct {
	Rows    int
	Parsed  int
	Skipped int
}

// ParseRows converts raw result rows into Measurements, in input order.
//
// A row missing the station or measurementTime binding, or whose
// timestamp does not parse, is skipped. Unparseable optional values leave
// the field nil. When at least one value parameter was requested, rows
// that end up with identity fields only are skipped as well.
//
// It returns a ParseError only when rows are present but none of them
// carries the identity bindings, which means the query result has the
// wrong shape rather than a few bad rows.
func ParseRows(rows []Row, params []Parameter) ([]Measurement, ParseStats, error) {
	stats := ParseStats{Rows: len(rows)}
	measurements := make([]Measurement, 0, len(rows))
	sawIdentity := false

	for _, row := range rows {
		station, okStation := row[ParamStation.Variable()]
		rawTime, okTime := row[ParamMeasurementTime.Variable()]
		if okStation && okTime {
			sawIdentity = true
		}

		m, ok := parseRow(station, rawTime, row, params)
		if !ok {
			stats.Skipped++
			continue
		}
		measurements = append(measurements, m)
	}

	if len(rows) > 0 && !sawIdentity {
		return nil, stats, &ParseError{Reason: "no rows carry station and measurementTime bindings"}
	}

	stats.Parsed = len(measurements)
	return measurements, stats, nil
}

func parseRow(station, rawTime string, row Row, params []Parameter) (Measurement, bool) {
	station = StationCodeFromIRI(station)
	if station == "" {
		return Measurement{}, false
	}

	ts, err := parseTimestamp(rawTime)
	if err != nil {
		return Measurement{}, false
	}

	m := Measurement{Station: station, Timestamp: ts}
	wantValues := false

	for _, p := range params {
		raw, ok := row[p.Variable()]

		switch p {
		case ParamStation, ParamMeasurementTime:
			continue
		case ParamDischarge:
			wantValues = true
			if ok {
				m.Discharge = parseDecimal(raw)
			}
		case ParamWaterLevel:
			wantValues = true
			if ok {
				m.WaterLevel = parseDecimal(raw)
			}
		case ParamDangerLevel:
			wantValues = true
			if ok {
				m.DangerLevel = parseDangerLevel(raw)
			}
		case ParamWaterTemperature:
			wantValues = true
			if ok {
				m.WaterTemperature = parseDecimal(raw)
			}
		case ParamIsLiter:
			if ok {
				m.IsLiter = parseBool(raw)
			}
		}
	}

	if wantValues && !m.HasValues() {
		return Measurement{}, false
	}
	return m, true
}

// StationCodeFromIRI recovers the station code from an observation IRI,
// e.g. ".../river/observation/2044" -> "2044". Plain literals pass
// through unchanged.
func StationCodeFromIRI(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.LastIndexByte(value, '/'); i >= 0 {
		value = value[i+1:]
	}
	return value
}

// parseTimestamp accepts RFC 3339 with either a Z or a numeric offset,
// which covers every xsd:dateTime form LINDAS emits.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Some dumps omit the offset entirely; treat those as UTC.
		ts, err = time.Parse("2006-01-02T15:04:05", raw)
		if err != nil {
			return time.Time{}, err
		}
		ts = ts.UTC()
	}
	return ts, nil
}

func parseDecimal(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseDangerLevel parses the FOEN flood danger scale. Values outside 0-5
// are treated as unparseable and dropped.
func parseDangerLevel(raw string) *int {
	raw = strings.TrimSpace(raw)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

func parseBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	default:
		return nil
	}
}
