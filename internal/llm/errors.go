package llm

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed failures below.
var (
	ErrInvocation      = errors.New("invocation failure")
	ErrMalformedOutput = errors.New("malformed output")
	ErrSchemaViolation = errors.New("schema violation")
)

// InvocationReason says which part of the backend round trip failed.
type InvocationReason string

const (
	ReasonUnreachable  InvocationReason = "unreachable"
	ReasonUnauthorized InvocationReason = "unauthorized"
	ReasonTimeout      InvocationReason = "timeout"
	ReasonNonJSON      InvocationReason = "non_json"
	ReasonRejected     InvocationReason = "rejected"
	ReasonCanceled     InvocationReason = "canceled"
)

// InvocationError is a failure at the backend communication layer, before parsing.
type InvocationError struct {
	Backend string
	Reason  InvocationReason
	Status  int // HTTP status when the backend answered, else 0
	Err     error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("invocation failure (%s", e.Reason)
	if e.Backend != "" {
		msg += ", backend=" + e.Backend
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(", status=%d", e.Status)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// MalformedOutputError means the response was not parseable JSON at all.
type MalformedOutputError struct {
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }

// Violation reasons.
const (
	ViolationNotObject    = "not_object"
	ViolationNotArray     = "not_array"
	ViolationMissing      = "missing"
	ViolationNotString    = "not_string"
	ViolationEmpty        = "empty"
	ViolationUnknownField = "unknown_field"
	ViolationDuplicate    = "duplicate_field"
	ViolationSchema       = "schema"
)

// EnvelopeIndex marks a violation at the top level rather than in a record.
const EnvelopeIndex = -1

// SchemaViolationError is parseable output that does not match the envelope
// or record shape. Index is the offending record (EnvelopeIndex for the top
// level) and Field the wire name involved.
type SchemaViolationError struct {
	Index  int
	Field  string
	Reason string
	Detail string
}

func (e *SchemaViolationError) Error() string {
	where := "envelope"
	if e.Index >= 0 {
		where = fmt.Sprintf("record %d", e.Index)
	}
	msg := fmt.Sprintf("schema violation at %s", where)
	if e.Field != "" {
		msg += fmt.Sprintf(", field %q", e.Field)
	}
	msg += ": " + e.Reason
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *SchemaViolationError) Is(target error) bool { return target == ErrSchemaViolation }
