package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitNonCompliant = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// StatusError ends a command with a specific exit code. A nil Err means the
// command already reported its outcome and nothing more is printed.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// NonCompliant is returned by commands whose evaluated document is not
// compliant.
func NonCompliant() *StatusError {
	return &StatusError{Code: ExitNonCompliant}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code
	}
	return ExitError
}

// Silent reports whether err carries nothing to print.
func Silent(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.Err == nil
}
