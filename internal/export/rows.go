package export

import "github.com/joseph-ayodele/docstruct/internal/llm"

// Row is one output line in fixed column order.
type Row struct {
	Key     string
	Value   string
	Comment string
}

// Cells returns the row in column order.
func (r Row) Cells() []string {
	return []string{r.Key, r.Value, r.Comment}
}

// Header returns the column titles, which are the wire field names.
func Header() []string {
	return llm.WireNames()
}

// Rows maps a validated result to export rows, preserving record order.
func Rows(res llm.Result) []Row {
	rows := make([]Row, len(res.Records))
	for i, rec := range res.Records {
		rows[i] = Row{Key: rec.Key, Value: rec.Value, Comment: rec.Comment}
	}
	return rows
}
