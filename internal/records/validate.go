package records

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs struct tag validation and folds field errors into a
// single ErrInvalidInput.
func ValidateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}

// ValidateProcurement rejects a procurement line before it reaches the engine.
// A supplied Amount must equal quantity*rate; zero means "not supplied".
func ValidateProcurement(l ProcurementLine) error {
	if err := ValidateStruct(l); err != nil {
		return err
	}
	if l.Amount != 0 && l.Amount != l.Extended() {
		return fmt.Errorf("%w: Amount %s does not equal Quantity*Rate %s", ErrInvalidInput, l.Amount, l.Extended())
	}
	return nil
}

// ValidatePayment rejects a payment line before it reaches the engine.
func ValidatePayment(l PaymentLine) error {
	return ValidateStruct(l)
}

// ValidateSale rejects a sale line before it reaches the engine.
func ValidateSale(l SaleLine) error {
	if err := ValidateStruct(l); err != nil {
		return err
	}
	if l.Amount != 0 && l.Amount != l.Extended() {
		return fmt.Errorf("%w: Amount %s does not equal Quantity*Rate %s", ErrInvalidInput, l.Amount, l.Extended())
	}
	return nil
}

// ValidateInventory rejects a stated inventory quantity before it is valued.
func ValidateInventory(s InventorySnapshot) error {
	return ValidateStruct(s)
}

// ValidateSnapshot checks every line of s and reports all failures at once.
func ValidateSnapshot(s Snapshot) error {
	var errs []error
	for i, l := range s.Procurements {
		if err := ValidateProcurement(l); err != nil {
			errs = append(errs, fmt.Errorf("procurement[%d] id=%d: %w", i, l.ID, err))
		}
	}
	for i, l := range s.Payments {
		if err := ValidatePayment(l); err != nil {
			errs = append(errs, fmt.Errorf("payment[%d] id=%d: %w", i, l.ID, err))
		}
	}
	for i, l := range s.Sales {
		if err := ValidateSale(l); err != nil {
			errs = append(errs, fmt.Errorf("sale[%d] id=%d: %w", i, l.ID, err))
		}
	}
	for i, inv := range s.Inventory {
		if err := ValidateInventory(inv); err != nil {
			errs = append(errs, fmt.Errorf("inventory[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
