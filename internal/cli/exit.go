package cli

import (
	"errors"
	"fmt"

	"github.com/FranksOps/seedcorpus/internal/tuple"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Runtime failure (I/O, network, storage)
	ExitCommandError = 2 // Bad invocation (flags, config, infeasible request)
)

// ExitError carries the process exit code for an error returned by a
// command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // What the command was doing
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// tupleExit classifies errors from the tuple engine: request problems are
// command errors, I/O problems are failures.
func tupleExit(message string, err error) *ExitError {
	switch {
	case errors.Is(err, tuple.ErrIO):
		return WrapExitError(ExitFailure, message, err)
	case errors.Is(err, tuple.ErrEmptyInput),
		errors.Is(err, tuple.ErrInvalidTupleSize),
		errors.Is(err, tuple.ErrInvalidCount),
		errors.Is(err, tuple.ErrInfeasible):
		return WrapExitError(ExitCommandError, message, err)
	default:
		return WrapExitError(ExitFailure, message, err)
	}
}
