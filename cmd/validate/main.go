// Command validate checks a Home Assistant statistics import CSV for the
// properties the recorder relies on: the exact header, hour-aligned
// timestamps, 3-decimal values, state equal to sum, and a cumulative sum
// that never decreases. Given the source NEM12 file it also re-runs the
// converter and compares the output row by row; given a SQLite database
// written with --sqlite it compares the stored series the same way.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv testdata/meter_7d_statistics.csv \
//	  -nem12 testdata/meter_7d.csv \
//	  -sqlite statistics.db
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/adapter/csvfile"
	"github.com/couchcryptid/nem12-statistics/internal/adapter/sqlite"
	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/couchcryptid/nem12-statistics/internal/observability"
	"github.com/couchcryptid/nem12-statistics/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

var threeDecimals = regexp.MustCompile(`^-?\d+\.\d{3}$`)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// options names the inputs of one validation run.
type options struct {
	csvPath    string
	nem12Path  string
	sqlitePath string
}

// statRow is one data row of the statistics CSV.
type statRow struct {
	lineNum int
	fields  []string
}

func main() {
	var opts options
	flag.StringVar(&opts.csvPath, "csv", "", "path to the statistics import CSV")
	flag.StringVar(&opts.nem12Path, "nem12", "", "optional source NEM12 file to re-convert and compare")
	flag.StringVar(&opts.sqlitePath, "sqlite", "", "optional SQLite database whose stored series is compared")
	flag.Parse()

	if opts.csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, opts); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, opts options) int {
	fmt.Fprintln(out, "=== Statistics Import Validation ===")
	fmt.Fprintln(out)

	header, rows, err := loadStatistics(opts.csvPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load statistics CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHeader(header),
		validateRowFormat(rows),
		validateCumulative(rows),
	}
	if opts.nem12Path != "" {
		phases = append(phases, validateConverterParity(rows, opts.nem12Path))
	}
	if opts.sqlitePath != "" {
		phases = append(phases, validateStoreParity(rows, opts.sqlitePath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadStatistics(path string) ([]string, []statRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("empty file %s", path)
	}

	rows := make([]statRow, 0, len(all)-1)
	for i, rec := range all[1:] {
		rows = append(rows, statRow{lineNum: i + 2, fields: rec})
	}
	return all[0], rows, nil
}

// ── Phases ──

func validateHeader(header []string) *phase {
	p := &phase{name: "Header"}
	if !slices.Equal(header, domain.StatisticsHeader) {
		p.errorf("header %v, want %v", header, domain.StatisticsHeader)
	}
	return p
}

func validateRowFormat(rows []statRow) *phase {
	p := &phase{name: "Row format"}
	for _, r := range rows {
		if len(r.fields) != len(domain.StatisticsHeader) {
			p.errorf("line %d: %d fields, want %d", r.lineNum, len(r.fields), len(domain.StatisticsHeader))
			continue
		}
		if r.fields[0] == "" {
			p.errorf("line %d: empty statistic_id", r.lineNum)
		}
		if r.fields[1] != domain.EnergyUnit {
			p.errorf("line %d: unit %q, want %q", r.lineNum, r.fields[1], domain.EnergyUnit)
		}
		start, err := time.Parse(domain.StartLayout, r.fields[2])
		switch {
		case err != nil:
			p.errorf("line %d: start %q is not DD.MM.YYYY HH:MM", r.lineNum, r.fields[2])
		case start.Minute() != 0:
			p.errorf("line %d: start %q is not on the hour", r.lineNum, r.fields[2])
		}
		for i, name := range []string{"state", "sum"} {
			v := r.fields[3+i]
			if !threeDecimals.MatchString(v) {
				p.errorf("line %d: %s %q does not have exactly 3 decimals", r.lineNum, name, v)
			}
		}
	}
	return p
}

// validateCumulative checks each series independently: rows of one
// statistic id must move forward in time with a non-decreasing sum.
func validateCumulative(rows []statRow) *phase {
	p := &phase{name: "Cumulative integrity"}

	type last struct {
		start time.Time
		sum   float64
	}
	prev := make(map[string]last)

	for _, r := range rows {
		if len(r.fields) != len(domain.StatisticsHeader) {
			continue
		}
		id := r.fields[0]
		start, err := time.Parse(domain.StartLayout, r.fields[2])
		if err != nil {
			continue
		}
		state, errState := strconv.ParseFloat(r.fields[3], 64)
		sum, errSum := strconv.ParseFloat(r.fields[4], 64)
		if errState != nil || errSum != nil {
			p.errorf("line %d: non-numeric state or sum", r.lineNum)
			continue
		}
		if r.fields[3] != r.fields[4] {
			p.errorf("line %d: state %s differs from sum %s", r.lineNum, r.fields[3], r.fields[4])
		}
		if sum < 0 || state < 0 {
			p.errorf("line %d: negative cumulative value", r.lineNum)
		}

		if pl, ok := prev[id]; ok {
			if !start.After(pl.start) {
				p.errorf("line %d: %s start %s does not follow %s",
					r.lineNum, id, start.Format(domain.StartLayout), pl.start.Format(domain.StartLayout))
			}
			if sum < pl.sum {
				p.errorf("line %d: %s sum decreased from %.3f to %.3f", r.lineNum, id, pl.sum, sum)
			}
		}
		prev[id] = last{start: start, sum: sum}
	}
	return p
}

// validateConverterParity converts the NEM12 source again and compares the
// result with the CSV under test.
func validateConverterParity(rows []statRow, nem12Path string) *phase {
	p := &phase{name: "Converter parity"}

	statisticID := domain.DefaultStatisticID
	if len(rows) > 0 && len(rows[0].fields) > 0 {
		statisticID = rows[0].fields[0]
	}

	want, err := convert(nem12Path, statisticID)
	if err != nil {
		p.errorf("convert %s: %v", nem12Path, err)
		return p
	}

	if len(want) != len(rows) {
		p.errorf("row count %d, converter produced %d", len(rows), len(want))
	}
	for i := range min(len(want), len(rows)) {
		if !slices.Equal(rows[i].fields, want[i]) {
			p.errorf("line %d: %v, converter produced %v", rows[i].lineNum, rows[i].fields, want[i])
		}
	}
	return p
}

// validateStoreParity compares every series in the CSV with the rows stored
// for it in the SQLite database.
func validateStoreParity(rows []statRow, dbPath string) *phase {
	p := &phase{name: "SQLite parity"}

	if _, err := os.Stat(dbPath); err != nil {
		p.errorf("open %s: %v", dbPath, err)
		return p
	}
	db, err := sqlite.InitDB(dbPath)
	if err != nil {
		p.errorf("open %s: %v", dbPath, err)
		return p
	}
	defer db.Close()
	store := sqlite.NewStore(db, "")

	var ids []string
	byID := make(map[string][]statRow)
	for _, r := range rows {
		if len(r.fields) == 0 {
			continue
		}
		id := r.fields[0]
		if _, ok := byID[id]; !ok {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], r)
	}

	for _, id := range ids {
		stored, err := store.Series(context.Background(), id)
		if err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}
		csvRows := byID[id]
		if len(stored) != len(csvRows) {
			p.errorf("%s: %d rows in CSV, %d stored", id, len(csvRows), len(stored))
		}
		for i := range min(len(stored), len(csvRows)) {
			if want := stored[i].Fields(); !slices.Equal(csvRows[i].fields, want) {
				p.errorf("line %d: %v, stored %v", csvRows[i].lineNum, csvRows[i].fields, want)
			}
		}
	}
	return p
}

func convert(path, statisticID string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conv := pipeline.NewConverter(logger, observability.NewMetricsOn(prometheus.NewRegistry()))
	_, err = conv.Convert(context.Background(), csvfile.NewReader(f), csvfile.NewWriter(&buf), pipeline.Options{
		StatisticID:           statisticID,
		DefaultIntervalLength: domain.DefaultIntervalLength,
		Source:                path,
	})
	if err != nil {
		return nil, err
	}

	all, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return nil, err
	}
	return all[1:], nil
}
