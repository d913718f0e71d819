// Package frame loads a transaction table into a private in-memory SQLite
// database. SQL filters and orders the rows for the dashboard's groupings.
//
// Amounts are stored as decimal text and summed with decimal arithmetic,
// so totals are exact at any magnitude. Every reducer works on expense
// rows only.
package frame

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"gagyebu/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Frame is one run's queryable copy of a table. Not safe for concurrent use.
type Frame struct {
	db *sql.DB
}

// Open creates the database and inserts table in row order.
func Open(ctx context.Context, table core.Table) (*Frame, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Each new connection to :memory: is a different database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	f := &Frame{db: db}
	if err := f.insert(ctx, table); err != nil {
		db.Close()
		return nil, err
	}
	return f, nil
}

func (f *Frame) Close() error {
	return f.db.Close()
}

func (f *Frame) insert(ctx context.Context, table core.Table) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (seq, date, category, item, amount, flow, note) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range table {
		_, err := stmt.ExecContext(ctx,
			i, t.Date.Format(core.DateLayout), t.Category, t.Item,
			t.Amount.String(), string(t.Flow), t.Note)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Len returns the number of stored rows, income included.
func (f *Frame) Len(ctx context.Context) (int, error) {
	var n int
	if err := f.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// TotalExpense sums the amount of every expense row.
func (f *Frame) TotalExpense(ctx context.Context) (decimal.Decimal, error) {
	groups, err := f.grouped(ctx, `
		SELECT '', amount FROM transactions
		WHERE flow = ?
		ORDER BY seq`, string(core.FlowExpense))
	if err != nil {
		return decimal.Zero, fmt.Errorf("total expense: %w", err)
	}
	if len(groups) == 0 {
		return decimal.Zero, nil
	}
	return groups[0].Amount, nil
}

// ByCategory totals expenses per category, ordered by category name.
func (f *Frame) ByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	return f.grouped(ctx, `
		SELECT category, amount FROM transactions
		WHERE flow = ?
		ORDER BY category, seq`, string(core.FlowExpense))
}

// ByItem totals expenses per item, largest first, ties by item name. A
// limit of zero or less returns every item.
func (f *Frame) ByItem(ctx context.Context, limit int) ([]core.CategoryAmount, error) {
	out, err := f.grouped(ctx, `
		SELECT item, amount FROM transactions
		WHERE flow = ?
		ORDER BY item, seq`, string(core.FlowExpense))
	if err != nil {
		return nil, err
	}
	// Stable: equal totals keep item order.
	slices.SortStableFunc(out, func(a, b core.CategoryAmount) int {
		return b.Amount.Cmp(a.Amount)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ByDate totals expenses per calendar date, oldest first.
func (f *Frame) ByDate(ctx context.Context) ([]core.DateAmount, error) {
	groups, err := f.grouped(ctx, `
		SELECT date, amount FROM transactions
		WHERE flow = ?
		ORDER BY date, seq`, string(core.FlowExpense))
	if err != nil {
		return nil, err
	}

	out := make([]core.DateAmount, 0, len(groups))
	for _, g := range groups {
		d, err := time.ParseInLocation(core.DateLayout, g.Name, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", g.Name, err)
		}
		out = append(out, core.DateAmount{Date: d, Amount: g.Amount})
	}
	return out, nil
}

// grouped sums the amount column over consecutive rows sharing the first
// column. The query must order by that column.
func (f *Frame) grouped(ctx context.Context, query string, args ...any) ([]core.CategoryAmount, error) {
	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group query: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q: %w", raw, err)
		}
		if n := len(out); n > 0 && out[n-1].Name == key {
			out[n-1].Amount = out[n-1].Amount.Add(amount)
			continue
		}
		out = append(out, core.CategoryAmount{Name: key, Amount: amount})
	}
	return out, rows.Err()
}
