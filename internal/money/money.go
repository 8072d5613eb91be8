// Package money provides the fixed-precision quantity and currency types used by
// every ledger and valuation computation.
//
// Quantities are stored as integer milli-tons (kilograms) and amounts as integer
// paise, so sums are exact and independent of the order of addition. Products
// and quotients go through shopspring/decimal and are rounded half away from
// zero back to the minimum unit.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// QuantityPlaces is the number of decimal places kept for tons.
	QuantityPlaces = 3
	// MoneyPlaces is the number of decimal places kept for rupees.
	MoneyPlaces = 2
)

// ErrParse indicates a malformed quantity or amount literal.
var ErrParse = errors.New("money: cannot parse value")

// Quantity is a produce quantity in thousandths of a ton.
type Quantity int64

// Money is a currency amount (or a per-ton rate) in paise.
type Money int64

// Tons builds a Quantity from whole tons.
func Tons(t int64) Quantity {
	return Quantity(t * 1000)
}

// Rupees builds a Money from whole rupees.
func Rupees(r int64) Money {
	return Money(r * 100)
}

// ParseQuantity parses a decimal ton literal such as "2.5".
func ParseQuantity(s string) (Quantity, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return Quantity(toUnits(d, QuantityPlaces)), nil
}

// ParseMoney parses a decimal rupee literal such as "30000.50".
func ParseMoney(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return Money(toUnits(d, MoneyPlaces)), nil
}

// MustQuantity is ParseQuantity for literals known to be valid.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// QuantityFromDecimal rounds d to the quantity precision.
func QuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(toUnits(d, QuantityPlaces))
}

// MoneyFromDecimal rounds d to paise.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(toUnits(d, MoneyPlaces))
}

// Decimal returns the quantity in tons.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -QuantityPlaces)
}

// String renders the quantity with three decimals.
func (q Quantity) String() string {
	return q.Decimal().StringFixed(QuantityPlaces)
}

// IsZero reports whether q is exactly zero.
func (q Quantity) IsZero() bool { return q == 0 }

// Decimal returns the amount in rupees.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -MoneyPlaces)
}

// String renders the amount with two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(MoneyPlaces)
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m == 0 }

// Extend returns q*rate rounded to paise. It is the only way a line amount is
// derived from its quantity and rate.
func Extend(q Quantity, rate Money) Money {
	return MoneyFromDecimal(q.Decimal().Mul(rate.Decimal()))
}

// RateOf returns amount/q rounded to paise. The result is not valid when q is
// zero: a rate over no quantity is undefined, not zero.
func RateOf(amount Money, q Quantity) NullMoney {
	if q == 0 {
		return NullMoney{}
	}
	return NullMoney{Money: MoneyFromDecimal(amount.Decimal().Div(q.Decimal())), Valid: true}
}

// MarshalText implements encoding.TextMarshaler.
func (q Quantity) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quantity) UnmarshalText(b []byte) error {
	v, err := ParseQuantity(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Money) UnmarshalText(b []byte) error {
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrParse)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return d, nil
}

func toUnits(d decimal.Decimal, places int32) int64 {
	return d.Round(places).Shift(places).IntPart()
}
