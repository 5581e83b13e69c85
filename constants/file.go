package constants

import (
	"slices"
	"strings"
)

// Source types reported by the document reader.
const (
	PDF  = "PDF"
	TEXT = "TEXT"
)

// extFormats maps accepted file extensions to source types.
var extFormats = map[string]string{
	"pdf":  PDF,
	"txt":  TEXT,
	"text": TEXT,
	"md":   TEXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps an extension (with or without the dot) to a source type.
// Unknown extensions map to "".
func MapExtToFormat(ext string) string {
	return extFormats[NormalizeExt(ext)]
}

// SupportedExtensions lists the accepted extensions, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extFormats))
	for ext := range extFormats {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}
