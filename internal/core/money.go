// Package core provides the subscription record model and amount handling.
//
// This file contains functions for parsing amounts typed by the user and
// formatting amounts for display.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// ignores surrounding whitespace. Zero is a valid amount (free tiers).
// Returns ErrInvalidAmount for empty input, signs, NaN/Inf or garbage.
//
// Examples:
//
//	ParseAmount("1500")   -> 1500, nil
//	ParseAmount("9,99")   -> 9.99, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// FormatAmount renders an amount with at most two fraction digits and no
// trailing zeros. Rounding happens here only; stored and aggregated values
// keep full precision.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).Round(2).String()
}

// FormatRaw renders an amount in its shortest round-trip decimal form, the
// way it is written to exports.
func FormatRaw(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
