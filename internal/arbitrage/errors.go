package arbitrage

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned (wrapped) whenever the engine receives numbers it
// cannot turn into meaningful probabilities. It is distinct from the
// no-opportunity outcome, which is reported as a nil result.
var ErrInvalidInput = errors.New("invalid input")

// InputError describes which argument was rejected.
type InputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidInput, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field string, value float64, reason string) error {
	return &InputError{Field: field, Value: value, Reason: reason}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateOdds(field string, odds float64) error {
	if !isFinite(odds) {
		return invalid(field, odds, "must be finite")
	}
	if odds <= 1 {
		return invalid(field, odds, "must be greater than 1")
	}
	return nil
}

func validateCommission(field string, commission float64) error {
	if !isFinite(commission) {
		return invalid(field, commission, "must be finite")
	}
	if commission < 0 || commission >= 1 {
		return invalid(field, commission, "must be in [0, 1)")
	}
	return nil
}

func validateNonNegative(field string, v float64) error {
	if !isFinite(v) {
		return invalid(field, v, "must be finite")
	}
	if v < 0 {
		return invalid(field, v, "must not be negative")
	}
	return nil
}
