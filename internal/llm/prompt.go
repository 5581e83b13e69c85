package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// documentDelimiter fences the document text inside the instruction.
const documentDelimiter = "---"

// userMessage accompanies the instruction, which travels as the system turn.
const userMessage = "Process the provided document text and return the structured JSON output adhering strictly to the schema."

// exampleRecords illustrate shape only and are unrelated to any input document.
var exampleRecords = []Record{
	{Key: "Assignment Title", Value: "AI-Powered Document Structuring & Data Extraction Task", Comment: ""},
	{Key: "Undergraduate GPA", Value: "8.7", Comment: "on a 10-point scale."},
}

// BuildInstruction composes the model-facing instruction for documentText.
// It is pure: identical input yields byte-identical output. Empty text is
// allowed and produces an empty document section.
func BuildInstruction(documentText string) string {
	names := quotedWireNames()

	rules := []string{
		"You are a document structuring and extraction engine. Transform the document text below into JSON that matches the JSON Schema provided. Return ONLY JSON: no prose, no markdown fences.",
		"1. Envelope: the JSON object MUST have exactly one top-level key named '" + EnvelopeKey + "' whose value is an array of records. Do NOT group records under custom keys such as 'Personal_Details' or 'Sections'.",
		"2. Records: every record MUST have exactly the fields " + names + ", each a JSON string. Never output null and never omit a field.",
		"3. Completeness: every clause of the document MUST land in the 'Key', 'Value' or 'Comment' field of some record. Nothing may be summarized, merged away, omitted or invented.",
		"4. Keys: decide a concise, logical 'Key' for each piece of information. 'Key' is the only field you author yourself.",
		"5. Value fidelity: 'Value' MUST be the exact original wording from the document, in its original language. Do not paraphrase, translate or normalize it.",
		"6. Comments: 'Comment' holds additional text pulled directly from the same part of the document that gives the pair necessary context. If 'Key' and 'Value' already capture the whole sentence or phrase, 'Comment' MUST be the empty string \"\".",
	}

	var b strings.Builder
	b.WriteString(strings.Join(rules, "\n"))

	b.WriteString("\n\nJSON Schema:\n")
	b.WriteString(Describe())

	b.WriteString("\n\nExample output (structure only; its content is illustrative and MUST NOT appear in your answer unless the document says it):\n")
	b.WriteString(exampleJSON())

	b.WriteString("\n\nDocument text to process:\n")
	b.WriteString(documentDelimiter)
	b.WriteString("\n")
	b.WriteString(documentText)
	if documentText != "" && !strings.HasSuffix(documentText, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(documentDelimiter)
	b.WriteString("\n")
	return b.String()
}

// BuildUserMessage returns the fixed user turn sent alongside the instruction.
func BuildUserMessage() string { return userMessage }

func quotedWireNames() string {
	names := WireNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}

// exampleJSON renders exampleRecords with fields in alias-table order, which
// a map-based marshal would not preserve.
func exampleJSON() string {
	var b strings.Builder
	b.WriteString("{\n  \"")
	b.WriteString(EnvelopeKey)
	b.WriteString("\": [\n")
	for i, r := range exampleRecords {
		b.WriteString("    {\n")
		for j, f := range fields {
			b.WriteString("      ")
			b.WriteString(jsonString(f.Wire))
			b.WriteString(": ")
			b.WriteString(jsonString(r.get(f.Internal)))
			if j < len(fields)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString("    }")
		if i < len(exampleRecords)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  ]\n}")
	return b.String()
}

func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
