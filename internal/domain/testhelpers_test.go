package domain

import (
	"strconv"
	"testing"
)

// intervalRecord builds a 300 record with the given readings followed by
// the usual quality and timestamp trailer.
func intervalRecord(t *testing.T, date string, readings []string) []string {
	t.Helper()
	fields := make([]string, 0, len(readings)+7)
	fields = append(fields, "300", date)
	fields = append(fields, readings...)
	return append(fields, "A", "", "", "20240102030405", "20240102040506")
}

func repeatReading(v float64, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// nmiDetails builds a 200 record declaring the given interval length field.
func nmiDetails(intervalLength string) []string {
	return []string{"200", "NEM1201009", "E1E2", "1", "E1", "N1", "01009", "kWh", intervalLength, ""}
}
