// Package export writes the current table as a spreadsheet-friendly CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"gagyebu/internal/core"
)

// DefaultPrefix is the download name prefix.
const DefaultPrefix = "뀨군뀨양_가계부"

// ContentType of the export body.
const ContentType = "text/csv; charset=utf-8"

// utf8BOM lets spreadsheet apps detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a BOM, the canonical header and one line per record.
// Dates are YYYY-MM-DD and amounts plain decimals without separators.
func WriteCSV(w io.Writer, table core.Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(core.RequiredColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, t := range table {
		rec := []string{
			t.Date.Format(core.DateLayout),
			t.Category,
			t.Item,
			t.Amount.String(),
			string(t.Flow),
			t.Note,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName returns "<prefix>_YYYYMMDD.csv" for now's local date.
func FileName(prefix string, now time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102"))
}
