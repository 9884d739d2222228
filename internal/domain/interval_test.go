package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntervalTracker_Default(t *testing.T) {
	assert.Equal(t, 30, NewIntervalTracker(DefaultIntervalLength).Length())
	assert.Equal(t, 15, NewIntervalTracker(15).Length())
	assert.Equal(t, 30, NewIntervalTracker(0).Length())
	assert.Equal(t, 30, NewIntervalTracker(90).Length())
}

func TestIntervalTracker_Observe(t *testing.T) {
	tests := []struct {
		name        string
		fields      []string
		wantLength  int
		wantChanged bool
		wantWarning bool
	}{
		{"five minutes", nmiDetails("5"), 5, true, false},
		{"fifteen minutes", nmiDetails("15"), 15, true, false},
		{"same length", nmiDetails("30"), 30, false, false},
		{"padded value", nmiDetails(" 15 "), 15, true, false},
		{"non numeric", nmiDetails("abc"), 30, false, true},
		{"empty field", nmiDetails(""), 30, false, true},
		{"zero", nmiDetails("0"), 30, false, true},
		{"negative", nmiDetails("-15"), 30, false, true},
		{"longer than an hour", nmiDetails("120"), 30, false, true},
		{"decimal", nmiDetails("15.0"), 30, false, true},
		{"field missing", []string{"200", "NEM1201009", "E1E2", "1", "E1", "N1", "01009", "kWh"}, 30, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewIntervalTracker(DefaultIntervalLength)
			res := tracker.Observe(tt.fields)

			assert.Equal(t, tt.wantLength, tracker.Length())
			assert.Equal(t, tt.wantLength, res.IntervalLength)
			assert.Equal(t, tt.wantChanged, res.Changed)
			if !tt.wantWarning {
				assert.Nil(t, res.Warning)
				return
			}
			require.NotNil(t, res.Warning)
			assert.Equal(t, WarningMalformedMetadataField, res.Warning.Kind)
			assert.Equal(t, 30, res.Warning.Retained)
		})
	}
}

func TestIntervalTracker_MalformedKeepsPreviousLength(t *testing.T) {
	tracker := NewIntervalTracker(DefaultIntervalLength)

	tracker.Observe(nmiDetails("15"))
	res := tracker.Observe(nmiDetails("bogus"))

	assert.Equal(t, 15, tracker.Length())
	require.NotNil(t, res.Warning)
	assert.Equal(t, "bogus", res.Warning.Field)
	assert.Equal(t, 15, res.Warning.Retained)
}

func TestIntervalFormulas(t *testing.T) {
	assert.Equal(t, 48, ExpectedIntervals(30))
	assert.Equal(t, 96, ExpectedIntervals(15))
	assert.Equal(t, 288, ExpectedIntervals(5))
	assert.Equal(t, 2, IntervalsPerHour(30))
	assert.Equal(t, 4, IntervalsPerHour(15))
	assert.Equal(t, 12, IntervalsPerHour(5))
}
