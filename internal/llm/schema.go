package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// EnvelopeKey is the single top-level key that carries the record array.
const EnvelopeKey = "extracted_data"

// Field is one row of the alias table: Wire is the name the model sees and the
// validator accepts, Internal is the name the record setter dispatches on.
type Field struct {
	Wire        string
	Internal    string
	AllowEmpty  bool
	Description string
}

// fields is the alias table in export column order. Exactly one wire name per
// field; nothing else is accepted on parse.
var fields = []Field{
	{
		Wire:        "Key",
		Internal:    "key",
		Description: "Short label for the piece of information, chosen by you.",
	},
	{
		Wire:        "Value",
		Internal:    "value",
		Description: "The exact original wording from the document for this key.",
	},
	{
		Wire:        "Comment",
		Internal:    "comment",
		AllowEmpty:  true,
		Description: "Remaining text from the same source sentence that adds context; empty string when Key and Value already capture it.",
	},
}

var fieldsByWire = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Wire] = f
	}
	return m
}()

// Fields returns a copy of the alias table in column order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// WireNames returns the wire field names in column order.
func WireNames() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Wire
	}
	return out
}

// LookupWire resolves a wire name to its field. Matching is exact.
func LookupWire(name string) (Field, bool) {
	f, ok := fieldsByWire[name]
	return f, ok
}

// set assigns v to the record field named by internal.
func (r *Record) set(internal, v string) {
	switch internal {
	case "key":
		r.Key = v
	case "value":
		r.Value = v
	case "comment":
		r.Comment = v
	default:
		panic(fmt.Sprintf("llm: alias table names unknown internal field %q", internal))
	}
}

// get reads the record field named by internal.
func (r Record) get(internal string) string {
	switch internal {
	case "key":
		return r.Key
	case "value":
		return r.Value
	case "comment":
		return r.Comment
	default:
		panic(fmt.Sprintf("llm: alias table names unknown internal field %q", internal))
	}
}

// Wire returns the record's values keyed by wire name.
func (r Record) Wire() map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Wire] = r.get(f.Internal)
	}
	return out
}

// JSONSchema returns a JSON-Schema (draft 2020-12 subset) of the envelope as a
// generic map. It is shown to the model and compiled for the validator gate.
func JSONSchema() map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		p := map[string]any{"type": "string", "description": f.Description}
		if !f.AllowEmpty {
			p["minLength"] = 1
		}
		props[f.Wire] = p
		required = append(required, f.Wire)
	}

	record := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			EnvelopeKey: map[string]any{
				"type":  "array",
				"items": record,
			},
		},
		"required": []string{EnvelopeKey},
	}
}

// Describe renders JSONSchema as indented JSON. Map keys are sorted by
// encoding/json, so the output is stable.
func Describe() string {
	b, err := json.MarshalIndent(JSONSchema(), "", "  ")
	if err != nil {
		panic(fmt.Sprintf("llm: marshal schema: %v", err))
	}
	return string(b)
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// compiledSchema compiles JSONSchema once per process.
func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(JSONSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("extraction.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}
