package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docstruct/constants"
)

// Writer produces XLSX workbooks from export rows.
type Writer struct {
	sheet  string
	logger *slog.Logger
}

func NewWriter(sheet string, logger *slog.Logger) *Writer {
	if sheet == "" {
		sheet = constants.DefaultSheet
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{sheet: sheet, logger: logger}
}

// Sheet returns the worksheet name rows are written to.
func (w *Writer) Sheet() string { return w.sheet }

// WriteXLSX returns a workbook (as bytes) with the header row followed by one
// row per record. A value the cell cannot hold verbatim fails the whole write
// with a *CellError; nothing is truncated or replaced.
func (w *Writer) WriteXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	if err := checkRows(rows); err != nil {
		w.logger.Error("export.xlsx.rejected", "sheet", w.sheet, "error", err)
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	activeIndex, err := f.GetSheetIndex(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet index: %w", err)
	}
	f.SetActiveSheet(activeIndex)

	if err := w.writeRow(f, 1, Header()); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(w.sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, r := range rows {
		if err := w.writeRow(f, i+2, r.Cells()); err != nil {
			return nil, err
		}
	}

	// Widen columns
	_ = f.SetColWidth(w.sheet, "A", "A", 28) // key
	_ = f.SetColWidth(w.sheet, "B", "B", 60) // value
	_ = f.SetColWidth(w.sheet, "C", "C", 60) // comment

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("export.xlsx.ok",
		"sheet", w.sheet,
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (w *Writer) writeRow(f *excelize.File, row int, cells []string) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(w.sheet, cell, v); err != nil {
			return fmt.Errorf("write %s: %w", cell, err)
		}
	}
	return nil
}

// ReadXLSX reads rows back from a workbook written by WriteXLSX. The header
// row must match Header.
func ReadXLSX(data []byte, sheet string) ([]Row, error) {
	if sheet == "" {
		sheet = constants.DefaultSheet
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx open: %w", err)
	}
	defer func() { _ = f.Close() }()

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx rows: %w", err)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("xlsx: sheet %q has no header row", sheet)
	}
	header := Header()
	got := pad(grid[0], len(header))
	for i, h := range header {
		if got[i] != h {
			return nil, fmt.Errorf("xlsx: column %d header is %q, want %q", i+1, got[i], h)
		}
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, line := range grid[1:] {
		cells := pad(line, len(header))
		rows = append(rows, Row{Key: cells[0], Value: cells[1], Comment: cells[2]})
	}
	return rows, nil
}

// pad restores trailing empty cells, which excelize drops when reading.
func pad(cells []string, n int) []string {
	if len(cells) >= n {
		return cells[:n]
	}
	out := make([]string, n)
	copy(out, cells)
	return out
}
