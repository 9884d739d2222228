package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/adapter/sqlite"
	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCSV = `statistic_id,unit,start,state,sum
sensor:power_usage,kWh,01.01.2024 00:00,1.000,1.000
sensor:power_usage,kWh,01.01.2024 01:00,2.500,2.500
sensor:power_usage,kWh,01.01.2024 02:00,2.500,2.500
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_Valid(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, options{csvPath: writeFile(t, "stats.csv", validCSV)})

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "Rows: 3")
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "wrong header",
			content: "id,unit,start,state,sum\n",
			want:    "header [id unit start state sum]",
		},
		{
			name:    "unit",
			content: "statistic_id,unit,start,state,sum\nsensor:x,Wh,01.01.2024 00:00,1.000,1.000\n",
			want:    `unit "Wh"`,
		},
		{
			name:    "not on the hour",
			content: "statistic_id,unit,start,state,sum\nsensor:x,kWh,01.01.2024 00:30,1.000,1.000\n",
			want:    "is not on the hour",
		},
		{
			name:    "timestamp layout",
			content: "statistic_id,unit,start,state,sum\nsensor:x,kWh,2024-01-01 00:00,1.000,1.000\n",
			want:    "is not DD.MM.YYYY HH:MM",
		},
		{
			name:    "decimals",
			content: "statistic_id,unit,start,state,sum\nsensor:x,kWh,01.01.2024 00:00,1.0,1.0\n",
			want:    "does not have exactly 3 decimals",
		},
		{
			name:    "state differs from sum",
			content: "statistic_id,unit,start,state,sum\nsensor:x,kWh,01.01.2024 00:00,1.000,2.000\n",
			want:    "state 1.000 differs from sum 2.000",
		},
		{
			name: "sum decreases",
			content: "statistic_id,unit,start,state,sum\n" +
				"sensor:x,kWh,01.01.2024 00:00,2.000,2.000\n" +
				"sensor:x,kWh,01.01.2024 01:00,1.000,1.000\n",
			want: "sum decreased from 2.000 to 1.000",
		},
		{
			name: "time goes backwards",
			content: "statistic_id,unit,start,state,sum\n" +
				"sensor:x,kWh,01.01.2024 01:00,1.000,1.000\n" +
				"sensor:x,kWh,01.01.2024 01:00,2.000,2.000\n",
			want: "does not follow",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := run(&out, options{csvPath: writeFile(t, "stats.csv", tt.content)})

			assert.Equal(t, 1, code)
			assert.Contains(t, out.String(), tt.want)
			assert.Contains(t, out.String(), "Validation FAILED.")
		})
	}
}

func TestRun_SeriesCheckedIndependently(t *testing.T) {
	content := "statistic_id,unit,start,state,sum\n" +
		"sensor:a,kWh,01.01.2024 00:00,5.000,5.000\n" +
		"sensor:b,kWh,01.01.2024 00:00,1.000,1.000\n" +
		"sensor:a,kWh,01.01.2024 01:00,6.000,6.000\n"

	var out bytes.Buffer
	assert.Equal(t, 0, run(&out, options{csvPath: writeFile(t, "stats.csv", content)}))
}

func TestRun_ConverterParity(t *testing.T) {
	readings := strings.TrimSuffix(strings.Repeat("0.5,", 48), ",")
	nem12 := writeFile(t, "meter.csv", "200,NMI1,E1,E1,E1,N1,M1,KWH,30,\n300,20240101,"+readings+"\n")

	var sb strings.Builder
	sb.WriteString("statistic_id,unit,start,state,sum\n")
	for h := range 24 {
		fmt.Fprintf(&sb, "sensor:power_usage,kWh,01.01.2024 %02d:00,%d.000,%d.000\n", h, h+1, h+1)
	}

	var out bytes.Buffer
	assert.Equal(t, 0, run(&out, options{csvPath: writeFile(t, "stats.csv", sb.String()), nem12Path: nem12}), out.String())

	// A tampered row is reported against the converter output.
	tampered := strings.Replace(sb.String(), "01.01.2024 23:00,24.000,24.000", "01.01.2024 23:00,25.000,25.000", 1)
	out.Reset()
	assert.Equal(t, 1, run(&out, options{csvPath: writeFile(t, "stats.csv", tampered), nem12Path: nem12}))
	assert.Contains(t, out.String(), "Converter parity")
	assert.Contains(t, out.String(), "line 25:")
}

func storeRows(t *testing.T, dbPath string, sums ...float64) {
	t.Helper()
	db, err := sqlite.InitDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	store := sqlite.NewStore(db, "import-1")
	ctx := context.Background()
	for h, v := range sums {
		require.NoError(t, store.WriteRow(ctx, domain.HourlyStatistic{
			StatisticID: "sensor:power_usage",
			Unit:        domain.EnergyUnit,
			Start:       time.Date(2024, time.January, 1, h, 0, 0, 0, time.UTC),
			State:       v,
			Sum:         v,
		}))
	}
	require.NoError(t, store.Flush(ctx))
}

func TestRun_StoreParity(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "statistics.db")
	storeRows(t, dbPath, 1, 2.5, 2.5)

	var out bytes.Buffer
	code := run(&out, options{csvPath: writeFile(t, "stats.csv", validCSV), sqlitePath: dbPath})
	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "SQLite parity")
}

func TestRun_StoreParityMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "statistics.db")
	storeRows(t, dbPath, 1, 3)

	var out bytes.Buffer
	code := run(&out, options{csvPath: writeFile(t, "stats.csv", validCSV), sqlitePath: dbPath})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "sensor:power_usage: 3 rows in CSV, 2 stored")
	assert.Contains(t, out.String(), "line 3:")
}

func TestRun_StoreParityMissingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	var out bytes.Buffer
	code := run(&out, options{csvPath: writeFile(t, "stats.csv", validCSV), sqlitePath: dbPath})
	assert.Equal(t, 1, code)
	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "validation must not create the database")
}

func TestRun_MissingFile(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run(&out, options{csvPath: filepath.Join(t.TempDir(), "missing.csv")}))
	assert.Contains(t, out.String(), "FATAL")
}
