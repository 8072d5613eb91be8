package money

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

// Scan implements sql.Scanner for NUMERIC columns.
func (q *Quantity) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	*q = QuantityFromDecimal(d)
	return nil
}

// Value implements driver.Valuer.
func (q Quantity) Value() (driver.Value, error) {
	return q.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
