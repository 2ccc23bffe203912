package services

import (
	"errors"
	"fmt"

	"recruitreach/repository"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrDelivery      = errors.New("delivery failed")
	ErrConfiguration = errors.New("configuration error")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError maps repository errors onto service errors.
func storeError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// ErrModelResponse is returned when the language model reply cannot be used.
var ErrModelResponse = errors.New("unusable model response")

// errAlreadyActive aborts a publish transaction that lost the activation race.
var errAlreadyActive = errors.New("sequence already active")
