package llm

import "context"

// Record is one extracted fact. Comment may be empty; that is the
// "no extra context" signal, not a missing field.
type Record struct {
	Key     string
	Value   string
	Comment string
}

// Result is the validated envelope. Records keep the model's emission order.
type Result struct {
	Records []Record
}

// Len returns the number of records.
func (r Result) Len() int { return len(r.Records) }

// Clone returns a copy whose record slice does not alias r's.
func (r Result) Clone() Result {
	if r.Records == nil {
		return Result{}
	}
	out := make([]Record, len(r.Records))
	copy(out, r.Records)
	return Result{Records: out}
}

// Raw is the untouched text a backend returned.
type Raw struct {
	Text    string
	Model   string
	Backend string
}

// Temperature is the sampling temperature every invoker requests. It is not
// configurable.
const Temperature float32 = 0

// Invoker sends one instruction to a generative backend under the JSON-only,
// zero-temperature contract and returns the raw response text.
// Failures are *InvocationError. Implementations never retry.
type Invoker interface {
	Invoke(ctx context.Context, instruction string) (Raw, error)
}
