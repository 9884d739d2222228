// Command genfixture writes a synthetic NEM12 file and, optionally, the
// statistics import CSV the converter is expected to produce for it. It uses
// the domain package to build the expected rows, so the fixture pair matches
// real converter behavior. Readings follow a daily load profile with seeded
// noise: the same flags always produce the same bytes.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -out testdata/meter_7d.csv \
//	  -expected-out testdata/meter_7d_statistics.csv \
//	  -days 7 -interval-length 30 -seed 42
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/adapter/csvfile"
	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "200601021504"
	secondsLayout  = "20060102150405"
)

// hourlyProfile is an average household draw in kW for each hour of the day.
var hourlyProfile = [24]float64{
	0.30, 0.25, 0.22, 0.22, 0.24, 0.35,
	0.70, 1.10, 0.90, 0.60, 0.50, 0.55,
	0.60, 0.55, 0.50, 0.60, 0.90, 1.40,
	1.80, 1.60, 1.20, 0.90, 0.60, 0.40,
}

type fixture struct {
	nmi            string
	start          time.Time
	days           int
	intervalLength int
	seed           uint64
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("genfixture", flag.ContinueOnError)
	out := fs.String("out", "", "output path for the NEM12 fixture")
	expectedOut := fs.String("expected-out", "", "optional output path for the expected statistics CSV")
	days := fs.Int("days", 7, "number of 300 records to generate")
	start := fs.String("start", "20240101", "first interval date (YYYYMMDD)")
	intervalLength := fs.Int("interval-length", domain.DefaultIntervalLength, "interval length in minutes")
	seed := fs.Uint64("seed", 1, "random seed")
	nmi := fs.String("nmi", "NMI1234567", "NMI written to the 200 record")
	statisticID := fs.String("statistic-id", domain.DefaultStatisticID, "statistic id for the expected CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		fs.Usage()
		return errors.New("missing required flag: -out")
	}
	if *days <= 0 {
		return fmt.Errorf("invalid -days %d: must be positive", *days)
	}
	if !domain.ValidIntervalLength(*intervalLength) {
		return fmt.Errorf("invalid -interval-length %d: must be between 1 and 60", *intervalLength)
	}
	startDate, err := time.Parse(dateLayout, *start)
	if err != nil {
		return fmt.Errorf("invalid -start %q: %w", *start, err)
	}

	fx := fixture{
		nmi:            *nmi,
		start:          startDate,
		days:           *days,
		intervalLength: *intervalLength,
		seed:           *seed,
	}

	// Fixed clock for reproducible file creation and update timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(startDate.AddDate(0, 0, *days).Add(3 * time.Hour)))
	defer domain.SetClock(nil)

	rows := fx.generate()
	if err := writeNEM12(*out, fx, rows); err != nil {
		return fmt.Errorf("writing NEM12 fixture: %w", err)
	}
	log.Printf("wrote NEM12 fixture: %s (%d days, %d-minute intervals)", *out, fx.days, fx.intervalLength)

	if *expectedOut != "" {
		n, total, err := writeExpected(*expectedOut, *statisticID, fx.intervalLength, rows)
		if err != nil {
			return fmt.Errorf("writing expected statistics: %w", err)
		}
		log.Printf("wrote expected statistics: %s (%d rows, final sum %s kWh)", *expectedOut, n, domain.FormatEnergy(total))
	}
	return nil
}

// generate builds one full day of readings per requested day.
func (fx fixture) generate() []domain.DailyIntervalRow {
	rng := rand.New(rand.NewPCG(fx.seed, fx.seed^0x9e3779b97f4a7c15)) //nolint:gosec // fixture data
	n := domain.ExpectedIntervals(fx.intervalLength)
	hours := float64(fx.intervalLength) / 60

	out := make([]domain.DailyIntervalRow, 0, fx.days)
	for d := range fx.days {
		date := fx.start.AddDate(0, 0, d)
		readings := make([]float64, n)
		for i := range readings {
			kw := hourlyProfile[min(i*fx.intervalLength/60, 23)] * (0.8 + 0.4*rng.Float64())
			readings[i] = domain.RoundEnergy(kw * hours)
		}
		out = append(out, domain.DailyIntervalRow{
			Date:     date,
			RawDate:  date.Format(dateLayout),
			Readings: readings,
		})
	}
	return out
}

func writeNEM12(path string, fx fixture, rows []domain.DailyIntervalRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	now := domain.Now()
	w := csv.NewWriter(f)
	records := [][]string{
		{"100", "NEM12", now.Format(dateTimeLayout), "MDP1", "RETAILER"},
		{"200", fx.nmi, "E1", "E1", "E1", "N1", "METER1", "KWH", strconv.Itoa(fx.intervalLength), ""},
	}
	for _, row := range rows {
		rec := make([]string, 0, len(row.Readings)+7)
		rec = append(rec, "300", row.RawDate)
		for _, v := range row.Readings {
			rec = append(rec, domain.FormatEnergy(v))
		}
		rec = append(rec, "A", "", "", now.Format(secondsLayout), "")
		records = append(records, rec)
	}
	records = append(records, []string{"900"})

	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}

// writeExpected aggregates rows the way the converter does and writes the
// resulting statistics CSV. It returns the row count and the final total.
func writeExpected(path, statisticID string, intervalLength int, rows []domain.DailyIntervalRow) (int, float64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	ctx := context.Background()
	w := csvfile.NewWriter(f)
	var state domain.CumulativeState
	total := 0
	for _, row := range rows {
		n, err := domain.Aggregate(row, intervalLength, &state, func(s domain.HourlyStatistic) error {
			s.StatisticID = statisticID
			return w.WriteRow(ctx, s)
		})
		total += n
		if err != nil {
			return total, 0, err
		}
	}
	if err := w.Flush(ctx); err != nil {
		return total, 0, err
	}
	return total, domain.RoundEnergy(state.Total()), f.Close()
}
