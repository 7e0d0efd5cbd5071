package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/genrun/genrun/internal/admission"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // the config field path (e.g., "admission.max_instances")
	Value   any    // the invalid value
	Message string // human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAdmission()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

func (c *Config) validateAdmission() []ValidationError {
	var errors []ValidationError

	if c.Admission.MaxInstances < 1 || c.Admission.MaxInstances > admission.MaxCapacity {
		errors = append(errors, ValidationError{
			Field:   "admission.max_instances",
			Value:   c.Admission.MaxInstances,
			Message: fmt.Sprintf("must be between 1 and %d", admission.MaxCapacity),
		})
	}

	if c.Admission.Key == "" {
		errors = append(errors, ValidationError{
			Field:   "admission.key",
			Value:   c.Admission.Key,
			Message: "must not be empty",
		})
	}

	if c.Admission.RetryInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "admission.retry_interval",
			Value:   c.Admission.RetryInterval,
			Message: "must be positive",
		})
	}

	if c.Admission.MaxAttempts < 0 {
		errors = append(errors, ValidationError{
			Field:   "admission.max_attempts",
			Value:   c.Admission.MaxAttempts,
			Message: "must be zero (wait forever) or positive",
		})
	}

	if c.Admission.LockRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "admission.lock_retries",
			Value:   c.Admission.LockRetries,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if c.Output.Directory == "" {
		errors = append(errors, ValidationError{
			Field:   "output.directory",
			Value:   c.Output.Directory,
			Message: "must not be empty",
		})
	}

	return errors
}
