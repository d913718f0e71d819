// Package csvbook exposes delimited text as a single-sheet workbook. Files
// whose first line already names the date and amount columns (such as the
// dashboard's own CSV export) report that line as their header.
package csvbook

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"gagyebu/internal/core"
	"gagyebu/internal/sheets"
)

// SheetName is the only sheet a CSV workbook has.
const SheetName = "CSV"

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	lineBreaks = strings.NewReplacer("\n", "", "\r", "")
)

type Book struct {
	rows [][]string
}

var (
	_ sheets.Workbook     = (*Book)(nil)
	_ sheets.HeaderHinter = (*Book)(nil)
)

// Read parses all records from r. A leading UTF-8 BOM is skipped.
func Read(r io.Reader) (*Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return &Book{rows: rows}, nil
}

// HeaderRow returns 1 when the first line holds the date and amount
// columns, and 0 otherwise so the configured header row applies.
func (b *Book) HeaderRow() int {
	if len(b.rows) == 0 {
		return 0
	}
	first := make([]string, len(b.rows[0]))
	for i, c := range b.rows[0] {
		first[i] = strings.TrimSpace(lineBreaks.Replace(c))
	}
	if slices.Contains(first, core.ColDate) && slices.Contains(first, core.ColAmount) {
		return 1
	}
	return 0
}

func (b *Book) SheetNames(context.Context) ([]string, error) {
	return []string{SheetName}, nil
}

func (b *Book) Rows(_ context.Context, sheet string) ([][]string, error) {
	if sheet != SheetName {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, sheet)
	}
	out := make([][]string, len(b.rows))
	for i, r := range b.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}
