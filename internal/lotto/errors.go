package lotto

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means the frequency table cannot produce a ticket.
	ErrInsufficientData = errors.New("insufficient data source")
	ErrInvalidDamping   = errors.New("damping factor must be in (0, 1]")
)

// ConfigurationError aborts a whole batch. It is never retried.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configurationError(reason string, err error) error {
	return &ConfigurationError{Reason: reason, Err: err}
}

// InputValidationError reports a bad user-supplied value.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsInputValidationError reports whether err carries an InputValidationError.
func IsInputValidationError(err error) bool {
	var inputErr *InputValidationError
	return errors.As(err, &inputErr)
}
