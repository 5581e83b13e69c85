package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate parses raw model output and checks it against the envelope and
// record shape. It returns either a fully typed Result or one of
// *MalformedOutputError / *SchemaViolationError, never a partial Result.
func Validate(raw []byte) (Result, error) {
	// encoding/json would swap bad bytes for U+FFFD.
	if !utf8.Valid(raw) {
		return Result{}, &MalformedOutputError{Err: errors.New("output is not valid UTF-8")}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{}, &MalformedOutputError{Err: err}
	}
	if err := checkDuplicateKeys(raw); err != nil {
		return Result{}, err
	}

	items, err := envelopeItems(doc)
	if err != nil {
		return Result{}, err
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		rec, err := validateRecord(i, item)
		if err != nil {
			return Result{}, err
		}
		records = append(records, rec)
	}

	if err := ValidateJSONAgainstSchema(doc); err != nil {
		return Result{}, err
	}
	return Result{Records: records}, nil
}

// ValidateJSONAgainstSchema evaluates an already decoded document against the
// compiled envelope schema.
func ValidateJSONAgainstSchema(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		v := &SchemaViolationError{Index: EnvelopeIndex, Reason: ViolationSchema, Detail: err.Error()}
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			v.Index, v.Field = locate(leafCause(ve).InstanceLocation)
		}
		return v
	}
	return nil
}

func envelopeItems(doc any) ([]any, error) {
	top, ok := doc.(map[string]any)
	if !ok {
		return nil, &SchemaViolationError{
			Index:  EnvelopeIndex,
			Reason: ViolationNotObject,
			Detail: "top level is " + kindOf(doc),
		}
	}

	var extra []string
	for k := range top {
		if k != EnvelopeKey {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return nil, &SchemaViolationError{
			Index:  EnvelopeIndex,
			Field:  extra[0],
			Reason: ViolationUnknownField,
			Detail: "only " + strconv.Quote(EnvelopeKey) + " is allowed at the top level",
		}
	}

	v, present := top[EnvelopeKey]
	if !present {
		return nil, &SchemaViolationError{Index: EnvelopeIndex, Field: EnvelopeKey, Reason: ViolationMissing}
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &SchemaViolationError{
			Index:  EnvelopeIndex,
			Field:  EnvelopeKey,
			Reason: ViolationNotArray,
			Detail: "value is " + kindOf(v),
		}
	}
	return items, nil
}

func validateRecord(i int, item any) (Record, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Record{}, &SchemaViolationError{Index: i, Reason: ViolationNotObject, Detail: "element is " + kindOf(item)}
	}

	var rec Record
	for _, f := range fields {
		v, present := obj[f.Wire]
		if !present {
			return Record{}, &SchemaViolationError{Index: i, Field: f.Wire, Reason: ViolationMissing}
		}
		s, ok := v.(string)
		if !ok {
			return Record{}, &SchemaViolationError{Index: i, Field: f.Wire, Reason: ViolationNotString, Detail: "value is " + kindOf(v)}
		}
		if !f.AllowEmpty && strings.TrimSpace(s) == "" {
			return Record{}, &SchemaViolationError{Index: i, Field: f.Wire, Reason: ViolationEmpty}
		}
		rec.set(f.Internal, s)
	}

	if len(obj) != len(fields) {
		var unknown []string
		for k := range obj {
			if _, ok := LookupWire(k); !ok {
				unknown = append(unknown, k)
			}
		}
		slices.Sort(unknown)
		return Record{}, &SchemaViolationError{Index: i, Field: unknown[0], Reason: ViolationUnknownField}
	}
	return rec, nil
}

// jsonFrame is one open object or array while scanning tokens.
type jsonFrame struct {
	object  bool
	keys    map[string]bool
	key     string // object: last key read
	wantKey bool
	next    int // array: index of the element being read
}

// checkDuplicateKeys reports the first object key that appears twice in the same
// object. encoding/json keeps the last one silently. raw must already be
// known to be valid JSON.
func checkDuplicateKeys(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var stack []*jsonFrame

	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		if top.object {
			top.wantKey = true
		} else {
			top.next++
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stack = append(stack, &jsonFrame{object: true, keys: map[string]bool{}, wantKey: true})
			case '[':
				stack = append(stack, &jsonFrame{})
			default:
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].wantKey {
				top := stack[n-1]
				if top.keys[t] {
					return duplicateViolation(stack, t)
				}
				top.keys[t] = true
				top.key = t
				top.wantKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

func duplicateViolation(stack []*jsonFrame, key string) error {
	v := &SchemaViolationError{Index: EnvelopeIndex, Field: key, Reason: ViolationDuplicate}
	if len(stack) == 1 {
		return v
	}
	segs := make([]string, 0, len(stack))
	for _, f := range stack[:len(stack)-1] {
		if f.object {
			segs = append(segs, f.key)
		} else {
			segs = append(segs, strconv.Itoa(f.next))
		}
	}
	segs = append(segs, key)
	v.Index, v.Field = locate("/" + strings.Join(segs, "/"))
	return v
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// locate turns a JSON pointer such as "/extracted_data/2/Value" into a record
// index and field name.
func locate(pointer string) (int, string) {
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	if len(parts) < 2 || parts[0] != EnvelopeKey {
		return EnvelopeIndex, ""
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return EnvelopeIndex, EnvelopeKey
	}
	if len(parts) > 2 {
		return idx, parts[2]
	}
	return idx, ""
}
