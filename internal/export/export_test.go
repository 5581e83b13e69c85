package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/llm"
)

func sampleResult() llm.Result {
	return llm.Result{Records: []llm.Record{
		{Key: "Full Name", Value: "Vijay Kumar", Comment: ""},
		{Key: "Undergraduate GPA", Value: "8.7", Comment: "on a 10-point scale."},
		{Key: "Ville natale", Value: "Jaipur, Rājasthān", Comment: "born & raised <there>"},
	}}
}

func TestHeader(t *testing.T) {
	assert.Equal(t, []string{"Key", "Value", "Comment"}, Header())
}

func TestRowsPreservesOrderAndEmptyComment(t *testing.T) {
	rows := Rows(sampleResult())
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Key: "Full Name", Value: "Vijay Kumar", Comment: ""}, rows[0])
	assert.Equal(t, []string{"Undergraduate GPA", "8.7", "on a 10-point scale."}, rows[1].Cells())
	assert.Equal(t, "Ville natale", rows[2].Key)
}

func TestRowsEmpty(t *testing.T) {
	assert.Empty(t, Rows(llm.Result{}))
}

func TestXLSXRoundTrip(t *testing.T) {
	w := NewWriter("", nil)
	assert.Equal(t, constants.DefaultSheet, w.Sheet())

	rows := Rows(sampleResult())
	data, err := w.WriteXLSX(rows)
	require.NoError(t, err)

	got, err := ReadXLSX(data, "")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestXLSXLayout(t *testing.T) {
	data, err := NewWriter("Records", nil).WriteXLSX(Rows(sampleResult()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Records"}, f.GetSheetList())

	header, err := f.GetRows("Records")
	require.NoError(t, err)
	assert.Equal(t, []string{"Key", "Value", "Comment"}, header[0])

	v, err := f.GetCellValue("Records", "B3")
	require.NoError(t, err)
	assert.Equal(t, "8.7", v)
}

func TestXLSXHeaderOnly(t *testing.T) {
	data, err := NewWriter("", nil).WriteXLSX(nil)
	require.NoError(t, err)

	got, err := ReadXLSX(data, constants.DefaultSheet)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadXLSXRejectsForeignWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellStr("Sheet1", "A1", "Name"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = ReadXLSX(buf.Bytes(), "Sheet1")
	assert.Error(t, err)

	_, err = ReadXLSX(buf.Bytes(), "Missing")
	assert.Error(t, err)
}

func TestPad(t *testing.T) {
	assert.Equal(t, []string{"a", "", ""}, pad([]string{"a"}, 3))
	assert.Equal(t, []string{"a", "b"}, pad([]string{"a", "b", "c"}, 2))
}

func TestWriteXLSXRejectsOverlongValue(t *testing.T) {
	rows := []Row{
		{Key: "Summary", Value: "short"},
		{Key: "Transcript", Value: strings.Repeat("a", excelize.TotalCellChars+1)},
	}

	data, err := NewWriter("", nil).WriteXLSX(rows)
	require.ErrorIs(t, err, ErrCellValue)
	assert.Nil(t, data)

	var cellErr *CellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, 1, cellErr.Row)
	assert.Equal(t, "Value", cellErr.Column)
	assert.Equal(t, CellTooLong, cellErr.Reason)
}

func TestWriteXLSXRejectsControlCharacter(t *testing.T) {
	rows := []Row{{Key: "Note", Value: "ok", Comment: "a\u0001b"}}

	_, err := NewWriter("", nil).WriteXLSX(rows)
	var cellErr *CellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, 0, cellErr.Row)
	assert.Equal(t, "Comment", cellErr.Column)
	assert.Equal(t, CellIllegalChar, cellErr.Reason)
}

func TestXLSXRoundTripAtCellLimit(t *testing.T) {
	rows := []Row{
		{Key: "Transcript", Value: strings.Repeat("a", excelize.TotalCellChars), Comment: ""},
		{Key: "Address", Value: "line one\nline two", Comment: "tab\tseparated"},
	}

	data, err := NewWriter("", nil).WriteXLSX(rows)
	require.NoError(t, err)

	got, err := ReadXLSX(data, "")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestCheckCell(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		reason string
	}{
		{"plain", "Vijay Kumar", ""},
		{"empty", "", ""},
		{"whitespace controls", "a\tb\nc\rd", ""},
		{"accents", "Rājasthān", ""},
		{"nul", "a\x00b", CellIllegalChar},
		{"escape", "\x1b[0m", CellIllegalChar},
		{"noncharacter", "a\uFFFEb", CellIllegalChar},
		{"invalid utf8", "a\xffb", CellIllegalChar},
		{"limit", strings.Repeat("x", excelize.TotalCellChars), ""},
		// each emoji takes two UTF-16 units
		{"surrogate pairs", strings.Repeat("\U0001F600", excelize.TotalCellChars/2+1), CellTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, _ := checkCell(tt.value)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
