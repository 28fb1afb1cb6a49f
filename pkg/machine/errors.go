package machine

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is matched by every InvalidConfigurationError.
var ErrInvalidConfiguration = errors.New("invalid machine configuration")

// InvalidConfigurationError reports a structurally invalid machine
// configuration, naming the offending field.
type InvalidConfigurationError struct {
	Machine string
	Field   string
	Reason  string
}

func (e *InvalidConfigurationError) Error() string {
	if e.Machine != "" {
		return fmt.Sprintf("invalid configuration for machine '%s': %s %s", e.Machine, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid machine configuration: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfiguration) succeed.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func invalid(machine, field, reason string) error {
	return &InvalidConfigurationError{Machine: machine, Field: field, Reason: reason}
}
