package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/basic-cleaning/engine/artifact"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitNotFound = 2
	ExitUpload   = 3
)

// CliError represents a CLI-specific error with enhanced context
type CliError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.cause
}

// NewCliError creates a new CLI error with context
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WithContext adds context to the error
func (e *CliError) WithContext(key string, value any) *CliError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause keeps the underlying error reachable through errors.Is.
func (e *CliError) WithCause(err error) *CliError {
	e.cause = err
	return e
}

// CategorizeError maps domain failures onto CLI errors. Unknown errors are
// returned unchanged.
func CategorizeError(err error) error {
	var cliErr *CliError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cliErr):
		return err
	case errors.Is(err, artifact.ErrNotFound):
		var nf *artifact.NotFoundError
		e := NewCliError("ARTIFACT_NOT_FOUND", "Input artifact could not be fetched", err.Error()).WithCause(err)
		if errors.As(err, &nf) {
			e.WithContext("reference", nf.Ref)
		}
		return e
	case errors.Is(err, artifact.ErrUpload):
		var up *artifact.UploadError
		e := NewCliError("UPLOAD_FAILED", "Output artifact could not be published", err.Error()).WithCause(err)
		if errors.As(err, &up) {
			e.WithContext("artifact", up.Name).WithContext("stage", up.Op)
		}
		return e
	case errors.Is(err, context.Canceled):
		return NewCliError("OPERATION_CANCELED", "Operation was canceled").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewCliError("OPERATION_TIMEOUT", "Operation timed out").WithCause(err)
	default:
		return err
	}
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, artifact.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, artifact.ErrUpload):
		return ExitUpload
	default:
		return ExitFailure
	}
}
