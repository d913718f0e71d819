// Package xlsx reads uploaded .xlsx workbooks with excelize.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"gagyebu/internal/sheets"

	"github.com/xuri/excelize/v2"
)

// Book is an opened workbook held fully in memory.
type Book struct {
	f *excelize.File
}

var _ sheets.Workbook = (*Book)(nil)

// Open parses an xlsx stream. Callers must Close the book.
func Open(r io.Reader) (*Book, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	return &Book{f: f}, nil
}

// OpenBytes is Open over an in-memory upload.
func OpenBytes(b []byte) (*Book, error) {
	return Open(bytes.NewReader(b))
}

func (b *Book) Close() error {
	return b.f.Close()
}

// SheetNames returns sheet names in tab order.
func (b *Book) SheetNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.f.GetSheetList(), nil
}

// Rows returns raw cell values. Date cells come back as serial numbers and
// amounts without number formatting.
func (b *Book) Rows(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Contains(b.f.GetSheetList(), sheet) {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, sheet)
	}
	rows, err := b.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Build writes a workbook with the given sheets, in order. Each sheet's rows
// start at A1. Cells may be any value excelize accepts.
func Build(names []string, data map[string][][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range names {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}
		for r, row := range data[name] {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, fmt.Errorf("write %s!%s: %w", name, cell, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
