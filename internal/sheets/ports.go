package sheets

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned by Rows for a sheet name the workbook lacks.
var ErrSheetNotFound = errors.New("sheet not found")

// Ports for workbook sources.
type (
	// Workbook is a read-only set of named sheets.
	Workbook interface {
		// SheetNames returns the sheet names in workbook order.
		SheetNames(ctx context.Context) ([]string, error)
		// Rows returns the cell text of a sheet, one slice per physical row
		// starting at row 1. Blank rows are present as empty slices.
		Rows(ctx context.Context, sheet string) ([][]string, error)
	}

	// HeaderHinter is implemented by workbooks whose header row differs from
	// the ledger template's default.
	HeaderHinter interface {
		HeaderRow() int
	}
)

// Cell returns row[idx], or "" when the row is shorter.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
