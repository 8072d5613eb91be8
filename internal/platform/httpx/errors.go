// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrBusy       = errors.New("resource busy")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrBusy):
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusServiceUnavailable, "Busy", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Rule maps domain errors onto one of the sentinels above.
type Rule struct {
	Sentinel error
	Members  []error
}

// Classify wraps err with the sentinel of the first rule it matches, or
// returns it unchanged.
func Classify(err error, rules ...Rule) error {
	for _, rule := range rules {
		for _, m := range rule.Members {
			if errors.Is(err, m) {
				return &classified{sentinel: rule.Sentinel, err: err}
			}
		}
	}
	return err
}

type classified struct {
	sentinel error
	err      error
}

func (c *classified) Error() string { return c.err.Error() }

func (c *classified) Unwrap() []error { return []error{c.sentinel, c.err} }
