// Package export renders the record collection as CSV.
package export

import (
	"bufio"
	"io"
	"strings"
	"time"

	"subtrack/internal/core"
)

// Header is the first CSV line.
var Header = []string{"name", "amount", "period"}

// WriteCSV writes recs in collection order. Every field is double-quoted
// with embedded quotes doubled, lines are separated by CRLF and the last
// line has no terminator. Amounts use the shortest decimal form that
// round-trips.
func WriteCSV(w io.Writer, recs []core.Record) error {
	bw := bufio.NewWriter(w)
	writeLine(bw, Header)
	for _, r := range recs {
		bw.WriteString("\r\n")
		writeLine(bw, []string{r.Name, core.FormatRaw(r.Amount), string(r.Period)})
	}
	return bw.Flush()
}

// CSV returns the export as a string.
func CSV(recs []core.Record) string {
	var b strings.Builder
	_ = WriteCSV(&b, recs)
	return b.String()
}

// Filename is the default export file name for the given day (UTC).
func Filename(now time.Time) string {
	return "subscriptions_" + now.UTC().Format(time.DateOnly) + ".csv"
}

func writeLine(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
}
