// Command validate performs integrity checks on a hydro measurement
// dataset CSV: header layout, row well-formedness, value ranges, and
// duplicate (station, measurement time) keys. With -fix it rewrites the
// dataset keeping the first record per key.
//
// Usage:
//
//	go run ./cmd/validate -dataset data/lindas_hydro_data.csv
//	go run ./cmd/validate -dataset data/lindas_hydro_data.csv -fix
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/hydrolab/lindas-hydro-etl/internal/store/csvstore"
)

var expectedHeader = []string{
	"timestamp",
	"station_id",
	"discharge",
	"water_level",
	"danger_level",
	"water_temperature",
	"is_liter",
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataset := flag.String("dataset", "", "path to the measurement dataset CSV")
	fix := flag.Bool("fix", false, "rewrite the dataset removing duplicate keys (first record wins)")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*dataset, *fix))
}

func run(path string, fix bool) int {
	fmt.Println("=== Hydro Dataset Integrity Validation ===")
	fmt.Println()

	header, rows, err := loadCSV(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHeader(header),
		validateRows(rows),
		validateDuplicates(rows),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d data rows\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if fix {
		if code := runFix(path); code != 0 {
			return code
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func runFix(path string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store, err := csvstore.New(path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open dataset: %v\n", err)
		return 1
	}
	removed, err := store.RemoveDuplicates(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: remove duplicates: %v\n", err)
		return 1
	}
	fmt.Printf("\nRemoved %d duplicate record(s).\n", removed)
	return 0
}

// csvRow is a raw dataset line with its 1-based file line number.
type csvRow struct {
	lineNum int
	fields  []string
}

func loadCSV(path string) ([]string, []csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty dataset %s", path)
	}
	if err != nil {
		return nil, nil, err
	}

	var rows []csvRow
	line := 1
	for {
		fields, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			rows = append(rows, csvRow{lineNum: line, fields: nil})
			continue
		}
		rows = append(rows, csvRow{lineNum: line, fields: fields})
	}
	return header, rows, nil
}

// ── Phase 1: Header Layout ──

func validateHeader(header []string) *phase {
	p := &phase{name: "Phase 1: Header Layout"}

	if len(header) != len(expectedHeader) {
		p.errorf("header has %d columns, expected %d", len(header), len(expectedHeader))
		return p
	}
	for i, want := range expectedHeader {
		if header[i] != want {
			p.errorf("column %d: got %q, expected %q", i+1, header[i], want)
		}
	}
	return p
}

// ── Phase 2: Row Well-Formedness ──

func validateRows(rows []csvRow) *phase {
	p := &phase{name: "Phase 2: Row Well-Formedness"}

	for _, row := range rows {
		if row.fields == nil {
			p.errorf("line %d: unreadable CSV line", row.lineNum)
			continue
		}
		if len(row.fields) != len(expectedHeader) {
			p.errorf("line %d: %d fields, expected %d", row.lineNum, len(row.fields), len(expectedHeader))
			continue
		}
		checkRowValues(p, row)
	}
	return p
}

func checkRowValues(p *phase, row csvRow) {
	if _, err := time.Parse(time.RFC3339, row.fields[0]); err != nil {
		p.errorf("line %d: timestamp %q is not RFC 3339", row.lineNum, row.fields[0])
	}
	if row.fields[1] == "" {
		p.errorf("line %d: station_id is empty", row.lineNum)
	}

	for _, c := range []struct {
		idx  int
		name string
	}{{2, "discharge"}, {3, "water_level"}, {5, "water_temperature"}} {
		v := row.fields[c.idx]
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			p.errorf("line %d: %s %q is not a decimal", row.lineNum, c.name, v)
		}
	}

	if v := row.fields[4]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.errorf("line %d: danger_level %q is not an integer", row.lineNum, v)
		} else if n < 0 || n > 5 {
			p.errorf("line %d: danger_level %d outside 0-5", row.lineNum, n)
		}
	}

	if v := row.fields[6]; v != "" {
		if _, err := strconv.ParseBool(v); err != nil {
			p.errorf("line %d: is_liter %q is not a boolean", row.lineNum, v)
		}
	}
}

// ── Phase 3: Duplicate Keys ──

func validateDuplicates(rows []csvRow) *phase {
	p := &phase{name: "Phase 3: Duplicate Keys"}

	firstSeen := map[string]int{}
	for _, row := range rows {
		if len(row.fields) != len(expectedHeader) {
			continue
		}
		ts, err := time.Parse(time.RFC3339, row.fields[0])
		if err != nil || row.fields[1] == "" {
			continue
		}
		key := ts.UTC().Format(time.RFC3339) + "_" + row.fields[1]
		if first, dup := firstSeen[key]; dup {
			p.errorf("line %d: duplicate of line %d (key %s); rerun with -fix to repair", row.lineNum, first, key)
			continue
		}
		firstSeen[key] = row.lineNum
	}
	return p
}
