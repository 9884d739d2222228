package domain

import (
	"math"
	"strconv"
	"time"
)

const (
	// EnergyUnit is the unit label written on every statistic row.
	EnergyUnit = "kWh"

	// DefaultStatisticID names the target series when none is configured.
	DefaultStatisticID = "sensor:power_usage"

	// StartLayout is the Home Assistant import timestamp format.
	StartLayout = "02.01.2006 15:04"

	energyPrecision = 3
)

// StatisticsHeader is the column header of the import file.
var StatisticsHeader = []string{"statistic_id", "unit", "start", "state", "sum"}

// HourlyStatistic is one row of the Home Assistant statistics import. State
// and Sum both hold the cumulative total at the end of the hour.
type HourlyStatistic struct {
	StatisticID string    `json:"statistic_id"`
	Unit        string    `json:"unit"`
	Start       time.Time `json:"start"`
	State       float64   `json:"state"`
	Sum         float64   `json:"sum"`
}

// RoundEnergy rounds v to the output precision of three decimals.
func RoundEnergy(v float64) float64 {
	const scale = 1e3
	return math.Round(v*scale) / scale
}

// FormatEnergy renders v with exactly three decimals.
func FormatEnergy(v float64) string {
	return strconv.FormatFloat(RoundEnergy(v), 'f', energyPrecision, 64)
}

// FormatStart renders the hour timestamp as DD.MM.YYYY HH:MM.
func (s HourlyStatistic) FormatStart() string {
	return s.Start.Format(StartLayout)
}

// Fields returns the row in import column order.
func (s HourlyStatistic) Fields() []string {
	return []string{
		s.StatisticID,
		s.Unit,
		s.FormatStart(),
		FormatEnergy(s.State),
		FormatEnergy(s.Sum),
	}
}

// Key identifies the row within a statistics series.
func (s HourlyStatistic) Key() string {
	return s.StatisticID + "|" + s.Start.Format(time.RFC3339)
}
