package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/llm"
)

// Coverage reports the fraction of distinct word tokens in documentText that
// appear in at least one record field. Page markers and empty-page
// placeholders are not document content and are skipped. A document with no
// tokens is fully covered.
func Coverage(documentText string, res llm.Result) float64 {
	docTokens := make(map[string]struct{})
	for _, line := range strings.Split(documentText, "\n") {
		if isReaderArtifact(line) {
			continue
		}
		for _, t := range tokens(line) {
			docTokens[t] = struct{}{}
		}
	}
	if len(docTokens) == 0 {
		return 1
	}

	seen := make(map[string]struct{})
	for _, r := range res.Records {
		for _, s := range []string{r.Key, r.Value, r.Comment} {
			for _, t := range tokens(s) {
				seen[t] = struct{}{}
			}
		}
	}

	covered := 0
	for t := range docTokens {
		if _, ok := seen[t]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(docTokens))
}

func isReaderArtifact(line string) bool {
	line = strings.TrimSpace(line)
	if line == constants.EmptyPageText {
		return true
	}
	var n int
	_, err := fmt.Sscanf(line, constants.PageMarkerFormat, &n)
	return err == nil && fmt.Sprintf(constants.PageMarkerFormat, n) == line
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
