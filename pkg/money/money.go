// Package money holds the flat-rate interest arithmetic used when a loan is
// funded. Every result is rounded to cents at the point of computation.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformedAmount = errors.New("amount is not a number")
	ErrTooManyDecimals = errors.New("amount has more than 2 decimal places")
)

var (
	hundred     = decimal.NewFromInt(100)
	monthsInYr  = decimal.NewFromInt(12)
	rateDivisor = hundred.Mul(monthsInYr)
)

// Round2 rounds half away from zero to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// InterestAmount is principal * annualRatePercent * months / 1200.
func InterestAmount(principal, annualRatePercent decimal.Decimal, months int) decimal.Decimal {
	return Round2(principal.Mul(annualRatePercent).Mul(decimal.NewFromInt(int64(months))).Div(rateDivisor))
}

func TotalRepayment(principal, interest decimal.Decimal) decimal.Decimal {
	return Round2(principal.Add(interest))
}

// MonthlyPayment spreads the total repayment over months; months <= 0
// returns the total unchanged.
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, months int) decimal.Decimal {
	total := TotalRepayment(principal, InterestAmount(principal, annualRatePercent, months))
	if months <= 0 {
		return total
	}
	return Round2(total.Div(decimal.NewFromInt(int64(months))))
}

// HasCents reports whether d carries at most 2 decimal places.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// ParseAmount parses a user-supplied monetary string.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}
	if !HasCents(d) {
		return decimal.Zero, ErrTooManyDecimals
	}
	return d, nil
}
