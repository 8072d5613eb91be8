package money

import (
	"bytes"
	"encoding/json"
)

var jsonNull = []byte("null")

// NullMoney is an amount or rate that may be undefined ("not applicable").
// An invalid NullMoney is distinct from a valid zero: a never-purchased product
// has no rate, a product bought for free has a zero rate.
type NullMoney struct {
	Money Money
	Valid bool
}

// SomeMoney wraps a defined amount.
func SomeMoney(m Money) NullMoney {
	return NullMoney{Money: m, Valid: true}
}

// Add sums two optional amounts. The result is valid when either side is.
func (n NullMoney) Add(o NullMoney) NullMoney {
	switch {
	case n.Valid && o.Valid:
		return SomeMoney(n.Money + o.Money)
	case n.Valid:
		return n
	default:
		return o
	}
}

// String renders the amount, or "N/A" when undefined.
func (n NullMoney) String() string {
	if !n.Valid {
		return NotApplicable
	}
	return n.Money.String()
}

// MarshalJSON renders undefined amounts as null.
func (n NullMoney) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Money)
}

// UnmarshalJSON accepts null or a decimal string.
func (n *NullMoney) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		*n = NullMoney{}
		return nil
	}
	var m Money
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*n = SomeMoney(m)
	return nil
}

// NullQuantity is a quantity that may be unknown, e.g. no inventory snapshot.
type NullQuantity struct {
	Quantity Quantity
	Valid    bool
}

// SomeQuantity wraps a known quantity.
func SomeQuantity(q Quantity) NullQuantity {
	return NullQuantity{Quantity: q, Valid: true}
}

// Add sums two optional quantities. The result is valid when either side is.
func (n NullQuantity) Add(o NullQuantity) NullQuantity {
	switch {
	case n.Valid && o.Valid:
		return SomeQuantity(n.Quantity + o.Quantity)
	case n.Valid:
		return n
	default:
		return o
	}
}

// String renders the quantity, or "N/A" when unknown.
func (n NullQuantity) String() string {
	if !n.Valid {
		return NotApplicable
	}
	return n.Quantity.String()
}

// MarshalJSON renders unknown quantities as null.
func (n NullQuantity) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Quantity)
}

// UnmarshalJSON accepts null or a decimal string.
func (n *NullQuantity) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		*n = NullQuantity{}
		return nil
	}
	var q Quantity
	if err := json.Unmarshal(b, &q); err != nil {
		return err
	}
	*n = SomeQuantity(q)
	return nil
}
