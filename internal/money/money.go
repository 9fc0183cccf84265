// Package money holds the fixed-point arithmetic used for prices, order
// totals and the commission split.  All amounts are shopspring decimals
// rounded to cents; float64 never touches a money value.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places amounts are stored with.
const Places = 2

// DefaultCommissionRate is the platform's share of every order.
var DefaultCommissionRate = decimal.RequireFromString("0.10")

// Quote returns unit × quantity rounded to cents.
func Quote(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(Places)
}

// Split divides total into the platform commission and the organizer's
// share.  The commission is rounded to cents and the organizer amount is
// derived by subtraction, so commission + organizer == total exactly.
func Split(total, rate decimal.Decimal) (commission, organizer decimal.Decimal) {
	commission = total.Mul(rate).Round(Places)
	organizer = total.Sub(commission)
	return commission, organizer
}

// ParseRate parses a commission rate such as "0.10" and checks it lies in
// [0, 1).
func ParseRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse commission rate %q: %w", s, err)
	}
	if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("commission rate %s out of range [0,1)", r)
	}
	return r, nil
}

// ParseAmount parses a positive money amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %s must be positive", d)
	}
	if !d.Equal(d.Round(Places)) {
		return decimal.Zero, fmt.Errorf("amount %s has more than %d decimals", d, Places)
	}
	return d, nil
}
