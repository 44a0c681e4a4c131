package export

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"subtrack/internal/core"
)

func TestCSV(t *testing.T) {
	tests := []struct {
		name string
		recs []core.Record
		want string
	}{
		{"empty", nil, `"name","amount","period"`},
		{"plain", []core.Record{
			{Name: "Netflix", Amount: 1500, Period: core.Monthly},
			{Name: "Amazon Prime", Amount: 4900.5, Period: core.Yearly},
		}, "\"name\",\"amount\",\"period\"\r\n\"Netflix\",\"1500\",\"monthly\"\r\n\"Amazon Prime\",\"4900.5\",\"yearly\""},
		{"quotes and commas", []core.Record{
			{Name: `Say "Hi", Co`, Amount: 0.1, Period: core.Monthly},
		}, "\"name\",\"amount\",\"period\"\r\n\"Say \"\"Hi\"\", Co\",\"0.1\",\"monthly\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CSV(tt.recs); got != tt.want {
				t.Fatalf("CSV =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestCSVReadsBack(t *testing.T) {
	recs := []core.Record{{Name: "Line\nBreak, \"quoted\"", Amount: 12.25, Period: core.Yearly}}
	rows, err := csv.NewReader(strings.NewReader(CSV(recs))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != recs[0].Name || rows[1][1] != "12.25" {
		t.Fatalf("unexpected rows %q", rows)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSVError(t *testing.T) {
	if err := WriteCSV(failingWriter{}, nil); err == nil {
		t.Fatal("expected write error")
	}
}

func TestFilename(t *testing.T) {
	day := time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("JST", 9*3600))
	if got := Filename(day); got != "subscriptions_2025-03-09.csv" {
		t.Fatalf("Filename = %q", got)
	}
}
