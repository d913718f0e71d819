// Package normalize turns one sheet of a ledger workbook into a clean
// transaction table.
//
// The ledger template carries a title block above the header, so the header
// sits on physical row DefaultHeaderRow. Rows below it become transactions.
// A row is kept only when both its date and its amount parse; everything else
// is dropped without error and counted in Sheet.Dropped.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"gagyebu/internal/core"
	"gagyebu/internal/sheets"
)

// DefaultHeaderRow is the 1-based physical row holding column names.
const DefaultHeaderRow = 7

type Options struct {
	// HeaderRow is the header position for workbooks that do not report
	// one through sheets.HeaderHinter. Zero means DefaultHeaderRow.
	HeaderRow int
}

// Sheet is a normalized sheet.
type Sheet struct {
	Name    string
	Columns []string
	Table   core.Table
	Dropped int
}

// ParseError reports a sheet that could not be read at all.
type ParseError struct {
	Sheet string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalize reads sheet from wb and coerces its rows.
func Normalize(ctx context.Context, wb sheets.Workbook, sheet string, opts Options) (Sheet, error) {
	rows, err := wb.Rows(ctx, sheet)
	if err != nil {
		return Sheet{}, &ParseError{Sheet: sheet, Err: err}
	}

	headerRow := resolveHeaderRow(wb, opts)
	out := Sheet{Name: sheet}
	if len(rows) < headerRow {
		return out, nil
	}

	out.Columns = CleanHeader(rows[headerRow-1])
	idx := columnIndex(out.Columns)
	dateIdx, okDate := idx[core.ColDate]
	amountIdx, okAmount := idx[core.ColAmount]
	if !okDate || !okAmount {
		return out, nil
	}

	body := rows[headerRow:]
	out.Table = make(core.Table, 0, len(body))
	for _, row := range body {
		tx, ok := normalizeRow(row, dateIdx, amountIdx, idx)
		if !ok {
			if !isBlank(row) {
				out.Dropped++
			}
			continue
		}
		out.Table = append(out.Table, tx)
	}
	return out, nil
}

// CleanHeader trims column names and removes embedded line breaks.
func CleanHeader(raw []string) []string {
	out := make([]string, len(raw))
	for i, c := range raw {
		c = strings.ReplaceAll(c, "\n", "")
		c = strings.ReplaceAll(c, "\r", "")
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// MissingColumns returns the required columns absent from columns, in
// required order.
func MissingColumns(columns []string) []string {
	idx := columnIndex(columns)
	var missing []string
	for _, c := range core.RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// resolveHeaderRow prefers the workbook's own layout, then opts.
func resolveHeaderRow(wb sheets.Workbook, opts Options) int {
	if h, ok := wb.(sheets.HeaderHinter); ok && h.HeaderRow() > 0 {
		return h.HeaderRow()
	}
	if opts.HeaderRow > 0 {
		return opts.HeaderRow
	}
	return DefaultHeaderRow
}

// columnIndex maps each non-empty column name to its first position.
func columnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			continue
		}
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return idx
}

func normalizeRow(row []string, dateIdx, amountIdx int, idx map[string]int) (core.Transaction, bool) {
	rawDate := strings.TrimSpace(sheets.Cell(row, dateIdx))
	rawAmount := strings.TrimSpace(sheets.Cell(row, amountIdx))
	if rawDate == "" || rawAmount == "" {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return core.Transaction{}, false
	}
	text := func(col string) string {
		i, ok := idx[col]
		if !ok {
			return ""
		}
		return strings.TrimSpace(sheets.Cell(row, i))
	}
	return core.Transaction{
		Date:     date,
		Category: text(core.ColCategory),
		Item:     text(core.ColItem),
		Amount:   amount,
		Flow:     core.Flow(text(core.ColFlow)),
		Note:     text(core.ColNote),
	}, true
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
