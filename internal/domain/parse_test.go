package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntervalRecord_FullDay(t *testing.T) {
	fields := intervalRecord(t, "20240101", repeatReading(0.5, 48))

	row, warnings, err := ParseIntervalRecord(fields, 30)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, row.Readings, 48)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, "20240101", row.RawDate)
}

func TestParseIntervalRecord_StopsAtNonNumeric(t *testing.T) {
	fields := intervalRecord(t, "20240101", repeatReading(0.25, 40))

	row, warnings, err := ParseIntervalRecord(fields, 30)

	require.NoError(t, err)
	assert.Len(t, row.Readings, 40)
	require.Len(t, warnings, 1)
	assert.Equal(t, Warning{
		Kind:     WarningIntervalCountMismatch,
		Date:     "20240101",
		Expected: 48,
		Found:    40,
	}, warnings[0])
	assert.Equal(t, "expected 48 intervals but found 40 for date 20240101", warnings[0].String())
}

func TestParseIntervalRecord_StopsAtExpectedCount(t *testing.T) {
	// 96 numeric values under a 30 minute length: only the first 48 are data.
	fields := intervalRecord(t, "20240101", repeatReading(1, 96))

	row, warnings, err := ParseIntervalRecord(fields, 30)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, row.Readings, 48)
}

func TestParseIntervalRecord_IntervalLengths(t *testing.T) {
	tests := []struct {
		length   int
		expected int
	}{
		{5, 288},
		{15, 96},
		{30, 48},
	}

	for _, tt := range tests {
		t.Run(time.Duration(tt.length*int(time.Minute)).String(), func(t *testing.T) {
			fields := intervalRecord(t, "20240229", repeatReading(0.1, tt.expected))
			row, warnings, err := ParseIntervalRecord(fields, tt.length)

			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Len(t, row.Readings, tt.expected)
		})
	}
}

func TestParseIntervalRecord_ValueParsing(t *testing.T) {
	fields := []string{"300", "20240101", "1.5", " 2 ", "0", "3e-1", "-0.25", "NaN", "4"}

	row, warnings, err := ParseIntervalRecord(fields, 30)

	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 0, 0.3, -0.25}, row.Readings)
	require.Len(t, warnings, 1)
	assert.Equal(t, 5, warnings[0].Found)
}

func TestParseIntervalRecord_EmptyFieldEndsRun(t *testing.T) {
	fields := []string{"300", "20240101", "1", "", "2"}

	row, _, err := ParseIntervalRecord(fields, 30)

	require.NoError(t, err)
	assert.Equal(t, []float64{1}, row.Readings)
}

func TestParseIntervalRecord_NoReadings(t *testing.T) {
	row, warnings, err := ParseIntervalRecord([]string{"300", "20240101"}, 30)

	require.NoError(t, err)
	assert.Empty(t, row.Readings)
	require.Len(t, warnings, 1)
	assert.Equal(t, 0, warnings[0].Found)
}

func TestParseIntervalRecord_InvalidDate(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{"missing date", []string{"300"}},
		{"empty date", []string{"300", "", "1"}},
		{"seven digits", []string{"300", "2024011", "1"}},
		{"dashed", []string{"300", "2024-01-01", "1"}},
		{"month 13", []string{"300", "20241301", "1"}},
		{"day 32", []string{"300", "20240132", "1"}},
		{"letters", []string{"300", "2024O101", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseIntervalRecord(tt.fields, 30)

			require.Error(t, err)
			var dateErr *DateFormatError
			assert.True(t, errors.As(err, &dateErr))
			assert.Contains(t, err.Error(), "invalid interval date")
		})
	}
}
