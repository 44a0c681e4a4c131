package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"monthly", Monthly, true},
		{"Monthly", Monthly, true},
		{" m ", Monthly, true},
		{"yearly", Yearly, true},
		{"year", Yearly, true},
		{"weekly", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("%q expected ErrInvalidPeriod, got %v", tc.in, err)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{Name: "Netflix", Amount: 1500, Period: Monthly}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	free := Record{Name: "Free tier", Amount: 0, Period: Yearly}
	if err := free.Validate(); err != nil {
		t.Fatalf("zero amount should be valid, got %v", err)
	}

	bads := []struct {
		r    Record
		want error
	}{
		{Record{Name: "  ", Amount: 1, Period: Monthly}, ErrEmptyName},
		{Record{Name: "a", Amount: -1, Period: Monthly}, ErrInvalidAmount},
		{Record{Name: "a", Amount: math.NaN(), Period: Monthly}, ErrInvalidAmount},
		{Record{Name: "a", Amount: math.Inf(1), Period: Monthly}, ErrInvalidAmount},
		{Record{Name: "a", Amount: 1, Period: "weekly"}, ErrInvalidPeriod},
	}
	for i, tc := range bads {
		if err := tc.r.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestRecordConversions(t *testing.T) {
	m := Record{Amount: 1500, Period: Monthly}
	y := Record{Amount: 1200, Period: Yearly}

	if m.MonthlyAmount() != 1500 || m.YearlyAmount() != 18000 || m.ConvertedAmount() != 18000 {
		t.Errorf("monthly conversions wrong: %v %v %v", m.MonthlyAmount(), m.YearlyAmount(), m.ConvertedAmount())
	}
	if y.MonthlyAmount() != 100 || y.YearlyAmount() != 1200 || y.ConvertedAmount() != 100 {
		t.Errorf("yearly conversions wrong: %v %v %v", y.MonthlyAmount(), y.YearlyAmount(), y.ConvertedAmount())
	}
	if Monthly.Opposite() != Yearly || Yearly.Opposite() != Monthly {
		t.Error("Opposite is wrong")
	}
}

func TestNewRecord(t *testing.T) {
	r, err := NewRecord("  Netflix ", 1500, Monthly)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if r.Name != "Netflix" {
		t.Errorf("name not trimmed: %q", r.Name)
	}
	if r.ID == "" {
		t.Error("expected an ID")
	}
	if _, err := NewRecord("", 1, Monthly); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestNewRecordIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := NewRecordID()
		if strings.TrimSpace(id) == "" {
			t.Fatal("empty id")
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q after %d ids", id, i)
		}
		seen[id] = struct{}{}
	}
}
