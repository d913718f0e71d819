package memory

import (
	"context"
	"fmt"
	"sync"

	"gagyebu/internal/sheets"
)

// Book is an in-memory workbook. Sheets keep insertion order.
type Book struct {
	mu     sync.Mutex
	names  []string
	sheets map[string][][]string
	header int
}

var _ sheets.Workbook = (*Book)(nil)

func New() *Book {
	return &Book{sheets: map[string][][]string{}}
}

// WithHeaderRow makes the book report a header row to the normalizer.
// Zero keeps the normalizer default.
func (b *Book) WithHeaderRow(row int) *Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.header = row
	return b
}

// HeaderRow implements sheets.HeaderHinter.
func (b *Book) HeaderRow() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.header
}

// Add stores (or replaces) a sheet.
func (b *Book) Add(name string, rows [][]string) *Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sheets[name]; !ok {
		b.names = append(b.names, name)
	}
	b.sheets[name] = copyRows(rows)
	return b
}

// SheetNames returns the sheet names in insertion order.
func (b *Book) SheetNames(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.names...), nil
}

// Rows returns a copy of the sheet's rows.
func (b *Book) Rows(_ context.Context, sheet string) ([][]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, sheet)
	}
	return copyRows(rows), nil
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}
