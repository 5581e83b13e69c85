package export

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrCellValue matches every *CellError.
var ErrCellValue = errors.New("value cannot be stored in a cell")

// Cell rejection reasons.
const (
	CellTooLong     = "too_long"
	CellIllegalChar = "illegal_char"
)

// CellError is a value a worksheet cell would store altered: excelize cuts
// strings past excelize.TotalCellChars UTF-16 units, and XML 1.0 cannot carry
// most control characters. Row is the 0-based record index, Column the header.
type CellError struct {
	Row    int
	Column string
	Reason string
	Detail string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell value rejected at record %d, column %q: %s (%s)", e.Row, e.Column, e.Reason, e.Detail)
}

func (e *CellError) Is(target error) bool { return target == ErrCellValue }

// checkRows returns the first cell that would not survive a write and read.
func checkRows(rows []Row) error {
	header := Header()
	for i, r := range rows {
		for col, v := range r.Cells() {
			if reason, detail := checkCell(v); reason != "" {
				return &CellError{Row: i, Column: header[col], Reason: reason, Detail: detail}
			}
		}
	}
	return nil
}

func checkCell(v string) (reason, detail string) {
	if !utf8.ValidString(v) {
		return CellIllegalChar, "invalid UTF-8"
	}
	n := 0
	for i, r := range v {
		if !xmlChar(r) {
			return CellIllegalChar, fmt.Sprintf("%U at byte %d", r, i)
		}
		n += utf16.RuneLen(r)
	}
	if n > excelize.TotalCellChars {
		return CellTooLong, fmt.Sprintf("%d UTF-16 units, limit %d", n, excelize.TotalCellChars)
	}
	return "", ""
}

// xmlChar reports whether r is in the XML 1.0 Char production.
func xmlChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return false
	}
	return r <= utf8.MaxRune
}
