package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const intervalDateLayout = "20060102"

// DailyIntervalRow is one 300 record reduced to its date and readings.
type DailyIntervalRow struct {
	Date     time.Time
	RawDate  string
	Readings []float64
}

// ParseIntervalRecord extracts the date and interval readings of a 300
// record. Readings are taken from field 2 onward until intervalLength's
// expected count is reached or a non-numeric field is met; the quality and
// timestamp fields that follow are never read as data. A reading count other
// than the expected one is returned as a warning alongside whatever was
// parsed. An invalid date is returned as a *DateFormatError.
func ParseIntervalRecord(fields []string, intervalLength int) (DailyIntervalRow, []Warning, error) {
	if len(fields) <= intervalDateField {
		return DailyIntervalRow{}, nil, &DateFormatError{}
	}

	rawDate := strings.TrimSpace(fields[intervalDateField])
	date, err := parseIntervalDate(rawDate)
	if err != nil {
		return DailyIntervalRow{}, nil, err
	}

	expected := ExpectedIntervals(intervalLength)
	readings := scanReadings(fields[intervalFirstValueField:], expected)

	row := DailyIntervalRow{Date: date, RawDate: rawDate, Readings: readings}
	if len(readings) == expected {
		return row, nil, nil
	}
	return row, []Warning{{
		Kind:     WarningIntervalCountMismatch,
		Date:     rawDate,
		Expected: expected,
		Found:    len(readings),
	}}, nil
}

// parseIntervalDate accepts exactly eight digits in YYYYMMDD order.
func parseIntervalDate(raw string) (time.Time, error) {
	if len(raw) != len(intervalDateLayout) || strings.IndexFunc(raw, notDigit) >= 0 {
		return time.Time{}, &DateFormatError{Value: raw}
	}
	date, err := time.Parse(intervalDateLayout, raw)
	if err != nil {
		return time.Time{}, &DateFormatError{Value: raw, Err: err}
	}
	return date, nil
}

func notDigit(r rune) bool { return r < '0' || r > '9' }

// scanReadings parses leading numeric fields, stopping at the first field
// that is not a finite number or once limit values are collected.
func scanReadings(fields []string, limit int) []float64 {
	readings := make([]float64, 0, min(limit, len(fields)))
	for _, field := range fields {
		if len(readings) >= limit {
			break
		}
		v, ok := parseReading(field)
		if !ok {
			break
		}
		readings = append(readings, v)
	}
	return readings
}

func parseReading(field string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
