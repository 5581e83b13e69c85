package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/llm"
	"github.com/joseph-ayodele/docstruct/internal/reader"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes surfaced to callers and the CLI.
const (
	CodeInvocation = "INVOCATION_FAILURE"
	CodeMalformed  = "MALFORMED_OUTPUT"
	CodeSchema     = "SCHEMA_VIOLATION"
	CodeRead       = "READ_FAILURE"
	CodeExport     = "EXPORT_FAILURE"
	CodeConfig     = "CONFIG_ERROR"
	CodeCanceled   = "CANCELED"
	CodeInternal   = "INTERNAL"
)

// Common application errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyDocument = errors.New("document contains no text")
	ErrInternal      = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Classify maps any pipeline error onto an AppError with a stable code.
// An error that already is an AppError is returned as is.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}

	var inv *llm.InvocationError
	switch {
	case errors.As(err, &inv) && inv.Reason == llm.ReasonCanceled:
		return NewAppError(CodeCanceled, "extraction canceled", err)
	case errors.Is(err, llm.ErrInvocation):
		return NewAppError(CodeInvocation, "model invocation failed", err)
	case errors.Is(err, llm.ErrMalformedOutput):
		return NewAppError(CodeMalformed, "model output is not parseable JSON", err)
	case errors.Is(err, llm.ErrSchemaViolation):
		return NewAppError(CodeSchema, "model output does not match the record schema", err)
	case errors.Is(err, reader.ErrUnsupported),
		errors.Is(err, reader.ErrInvalidText),
		errors.Is(err, reader.ErrUnreadable),
		errors.Is(err, ErrEmptyDocument):
		return NewAppError(CodeRead, "document could not be read", err)
	case errors.Is(err, export.ErrCellValue):
		return NewAppError(CodeExport, "records cannot be written to the workbook", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewAppError(CodeCanceled, "extraction canceled", err)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(CodeConfig, "invalid configuration", err)
	default:
		return NewAppError(CodeInternal, "unexpected failure", err)
	}
}

// ExitCode returns the process exit status for an error code.
func ExitCode(code string) int {
	switch code {
	case CodeConfig:
		return 2
	case CodeRead:
		return 3
	case CodeInvocation:
		return 4
	case CodeMalformed:
		return 5
	case CodeSchema:
		return 6
	case CodeExport:
		return 7
	case CodeCanceled:
		return 130
	default:
		return 1
	}
}
