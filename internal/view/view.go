// Package view derives display data from a record collection: aggregate
// totals and a filtered, sorted projection. Nothing here touches storage.
package view

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"subtrack/internal/core"
)

// SortMode selects how Project orders or narrows the filtered records.
type SortMode string

const (
	SortNone              SortMode = ""
	SortNameAsc           SortMode = "name-asc"
	SortNameDesc          SortMode = "name-desc"
	SortMonthlyAmountAsc  SortMode = "monthly-amount-asc"
	SortMonthlyAmountDesc SortMode = "monthly-amount-desc"
	SortYearlyAmountAsc   SortMode = "yearly-amount-asc"
	SortYearlyAmountDesc  SortMode = "yearly-amount-desc"
	FilterMonthly         SortMode = "period-monthly"
	FilterYearly          SortMode = "period-yearly"
)

// SortModes lists every recognized mode, for help output.
var SortModes = []SortMode{
	SortNameAsc, SortNameDesc,
	SortMonthlyAmountAsc, SortMonthlyAmountDesc,
	SortYearlyAmountAsc, SortYearlyAmountDesc,
	FilterMonthly, FilterYearly,
}

type (
	// Totals are the aggregate costs of the whole collection.
	Totals struct {
		Monthly float64
		Yearly  float64
	}

	// Row is a record prepared for display with its amount converted to the
	// opposite period.
	Row struct {
		core.Record
		Converted       float64
		ConvertedPeriod core.Period
	}
)

// CalcSums adds every record to both totals, converting across periods.
// Accumulation follows collection order without rounding.
func CalcSums(recs []core.Record) Totals {
	var t Totals
	for _, r := range recs {
		if r.Period == core.Monthly {
			t.Monthly += r.Amount
			t.Yearly += r.Amount * core.MonthsPerYear
		} else {
			t.Monthly += r.Amount / core.MonthsPerYear
			t.Yearly += r.Amount
		}
	}
	return t
}

// Project filters recs by a case-insensitive name substring and applies
// mode. Unknown modes keep the filtered records in their original order.
// The input slice is not modified.
func Project(recs []core.Record, term string, mode SortMode) []Row {
	return ProjectLocale(language.Und, recs, term, mode)
}

// ProjectLocale is Project with name ordering collated for tag.
func ProjectLocale(tag language.Tag, recs []core.Record, term string, mode SortMode) []Row {
	needle := strings.ToLower(strings.TrimSpace(term))
	filtered := make([]core.Record, 0, len(recs))
	for _, r := range recs {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			filtered = append(filtered, r)
		}
	}

	switch mode {
	case SortNameAsc, SortNameDesc:
		c := collate.New(tag)
		slices.SortStableFunc(filtered, func(a, b core.Record) int {
			if mode == SortNameDesc {
				a, b = b, a
			}
			return c.CompareString(a.Name, b.Name)
		})
	case SortMonthlyAmountAsc:
		sortByAmount(filtered, core.Record.MonthlyAmount, false)
	case SortMonthlyAmountDesc:
		sortByAmount(filtered, core.Record.MonthlyAmount, true)
	case SortYearlyAmountAsc:
		sortByAmount(filtered, core.Record.YearlyAmount, false)
	case SortYearlyAmountDesc:
		sortByAmount(filtered, core.Record.YearlyAmount, true)
	case FilterMonthly:
		filtered = byPeriod(filtered, core.Monthly)
	case FilterYearly:
		filtered = byPeriod(filtered, core.Yearly)
	}

	rows := make([]Row, len(filtered))
	for i, r := range filtered {
		rows[i] = NewRow(r)
	}
	return rows
}

// NewRow converts a record for display.
func NewRow(r core.Record) Row {
	return Row{
		Record:          r,
		Converted:       r.ConvertedAmount(),
		ConvertedPeriod: r.Period.Opposite(),
	}
}

func sortByAmount(recs []core.Record, amount func(core.Record) float64, desc bool) {
	slices.SortStableFunc(recs, func(a, b core.Record) int {
		x, y := amount(a), amount(b)
		if desc {
			x, y = y, x
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
}

func byPeriod(recs []core.Record, p core.Period) []core.Record {
	out := recs[:0]
	for _, r := range recs {
		if r.Period == p {
			out = append(out, r)
		}
	}
	return out
}

// ParseSortMode accepts any recognized mode; anything else maps to SortNone.
func ParseSortMode(s string) SortMode {
	m := SortMode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(SortModes, m) {
		return m
	}
	return SortNone
}
