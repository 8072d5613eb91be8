// Package payments records farmer payments against their outstanding
// balance, guarding against payments that exceed what the farmer is owed.
package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// Policy decides what happens to a payment that exceeds the balance.
type Policy string

const (
	// PolicyWarn records the payment and flags it as an overpayment.
	PolicyWarn Policy = "warn"
	// PolicyReject refuses the payment with ErrOverpayment.
	PolicyReject Policy = "reject"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyWarn, PolicyReject:
		return p, nil
	case "":
		return PolicyWarn, nil
	default:
		return "", fmt.Errorf("payments: unknown overpayment policy %q", s)
	}
}

var (
	// ErrOverpayment indicates the payment exceeds the outstanding balance.
	ErrOverpayment = errors.New("payments: amount exceeds outstanding balance")
	// ErrUnknownFarmer indicates the farmer does not belong to the FPO.
	ErrUnknownFarmer = errors.New("payments: farmer not found in fpo")
)

// Input is a payment as entered by an operator.
type Input struct {
	FPOID          int64       `json:"fpo_id" validate:"gt=0"`
	FarmerID       int64       `json:"farmer_id" validate:"gt=0"`
	Date           time.Time   `json:"date" validate:"required"`
	Amount         money.Money `json:"amount" validate:"gt=0"`
	Description    string      `json:"description" validate:"max=500"`
	IdempotencyKey string      `json:"-" validate:"max=128"`
}

// Decision is the balance check for one prospective payment.
type Decision struct {
	Remaining   money.Money `json:"remaining"`
	After       money.Money `json:"after"`
	Overpayment bool        `json:"overpayment"`
}

// Check compares amount with the farmer's remaining balance in l. A farmer
// absent from l owes nothing, so any payment to them is an overpayment.
func Check(l ledger.Ledger, farmerID int64, amount money.Money) Decision {
	var remaining money.Money
	if s, ok := l.Lookup(farmerID); ok {
		remaining = s.Remaining
	}
	after := remaining - amount
	return Decision{Remaining: remaining, After: after, Overpayment: after < 0}
}

// Result is a recorded payment with the decision taken for it.
type Result struct {
	Payment  records.PaymentLine `json:"payment"`
	Decision Decision            `json:"decision"`
}
