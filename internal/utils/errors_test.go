package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "test error message",
	}

	assert.Equal(t, "test error message", err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("validation failed")

	assert.Error(t, err)
	assert.Equal(t, "validation failed", err.Error())

	validationErr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "validation failed", validationErr.Message)
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("min_margin must be between %d and %d", 0, 1)

	assert.Equal(t, "min_margin must be between 0 and 1", err.Error())
	assert.True(t, IsValidationError(err))
}

func TestIsValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("update settings: %w", NewValidationError("bad timezone"))

	assert.True(t, IsValidationError(err))
	assert.False(t, IsValidationError(errors.New("plain")))
	assert.False(t, IsValidationError(nil))
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("opportunity", "abc")

	assert.Equal(t, "opportunity not found: abc", err.Error())
	assert.True(t, IsNotFoundError(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsNotFoundError(NewValidationError("x")))
}

func TestConflictError(t *testing.T) {
	err := NewConflictErrorf("cannot move %s to %s", "expired", "active")

	assert.Equal(t, "cannot move expired to active", err.Error())
	assert.True(t, IsConflictError(err))
	assert.False(t, IsConflictError(NewNotFoundError("a", "b")))
}
