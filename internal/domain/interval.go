package domain

import (
	"strconv"
	"strings"
)

const (
	// DefaultIntervalLength applies until the first valid 200 record.
	DefaultIntervalLength = 30

	minutesPerDay  = 1440
	minutesPerHour = 60
)

// ValidIntervalLength reports whether minutes can be used as an interval
// length. Lengths above an hour cannot be folded into hourly buckets.
func ValidIntervalLength(minutes int) bool {
	return minutes > 0 && minutes <= minutesPerHour
}

// ExpectedIntervals returns the number of readings a full day holds.
func ExpectedIntervals(intervalLength int) int {
	return minutesPerDay / intervalLength
}

// IntervalsPerHour returns the number of readings summed into one hour.
func IntervalsPerHour(intervalLength int) int {
	return minutesPerHour / intervalLength
}

// IntervalTracker holds the interval length declared by the most recent
// NMI data details record.
type IntervalTracker struct {
	length int
}

// MetadataResult describes what a 200 record did to the tracker.
type MetadataResult struct {
	IntervalLength int
	Changed        bool
	Warning        *Warning
}

// NewIntervalTracker returns a tracker starting at defaultLength, or at
// DefaultIntervalLength when defaultLength is not usable.
func NewIntervalTracker(defaultLength int) *IntervalTracker {
	if !ValidIntervalLength(defaultLength) {
		defaultLength = DefaultIntervalLength
	}
	return &IntervalTracker{length: defaultLength}
}

// Length returns the interval length in effect.
func (t *IntervalTracker) Length() int {
	return t.length
}

// Observe applies the interval length field of a 200 record. A missing,
// non-integer or out-of-range field leaves the current length in place and
// is reported as a warning rather than an error.
func (t *IntervalTracker) Observe(fields []string) MetadataResult {
	if len(fields) <= nmiDetailsIntervalLengthField {
		return t.reject("")
	}

	raw := strings.TrimSpace(fields[nmiDetailsIntervalLengthField])
	minutes, err := strconv.Atoi(raw)
	if err != nil || !ValidIntervalLength(minutes) {
		return t.reject(raw)
	}

	changed := minutes != t.length
	t.length = minutes
	return MetadataResult{IntervalLength: minutes, Changed: changed}
}

func (t *IntervalTracker) reject(raw string) MetadataResult {
	return MetadataResult{
		IntervalLength: t.length,
		Warning: &Warning{
			Kind:     WarningMalformedMetadataField,
			Field:    raw,
			Retained: t.length,
		},
	}
}
