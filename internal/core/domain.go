package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// MonthsPerYear converts between the two billing periods.
const MonthsPerYear = 12

type (
	// Period is the billing cadence of a record.
	Period string

	// Record is one tracked subscription. The JSON shape is the persisted
	// wire format of the collection in both backing stores.
	Record struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
		Period Period  `json:"period"`
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPeriod = errors.New("invalid period")
)

// ParsePeriod accepts the canonical names plus the short forms the CLI offers.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month", "m":
		return Monthly, nil
	case "yearly", "year", "y", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p Period) Validate() error {
	switch p {
	case Monthly, Yearly:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

// Opposite returns the other billing period.
func (p Period) Opposite() Period {
	if p == Monthly {
		return Yearly
	}
	return Monthly
}

func (p Period) String() string {
	return string(p)
}

// ValidateAmount rejects negative, NaN and infinite amounts. Zero is allowed.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the user-editable fields of a record. The name is expected
// to be trimmed already.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	return r.Period.Validate()
}

// MonthlyAmount is the record's amount expressed per month.
func (r Record) MonthlyAmount() float64 {
	if r.Period == Monthly {
		return r.Amount
	}
	return r.Amount / MonthsPerYear
}

// YearlyAmount is the record's amount expressed per year.
func (r Record) YearlyAmount() float64 {
	if r.Period == Yearly {
		return r.Amount
	}
	return r.Amount * MonthsPerYear
}

// ConvertedAmount is the amount expressed in the opposite period unit.
func (r Record) ConvertedAmount() float64 {
	if r.Period == Monthly {
		return r.YearlyAmount()
	}
	return r.MonthlyAmount()
}

// NewRecordID returns a fresh identifier. UUIDv7 carries a millisecond
// timestamp prefix followed by random bits.
func NewRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewRecord trims and validates the input and assigns a fresh ID.
func NewRecord(name string, amount float64, period Period) (Record, error) {
	r := Record{
		Name:   strings.TrimSpace(name),
		Amount: amount,
		Period: period,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	r.ID = NewRecordID()
	return r, nil
}
