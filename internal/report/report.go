// Package report computes the dashboard's numbers for one run.
package report

import (
	"context"
	"fmt"

	"gagyebu/internal/core"
	"gagyebu/internal/frame"

	"github.com/shopspring/decimal"
)

// DefaultBudget is the monthly budget in won.
const DefaultBudget = 400000

// TopItemsLimit caps the item ranking.
const TopItemsLimit = 10

// UnlabeledName stands in for an empty category or item.
const UnlabeledName = "(미분류)"

type Report struct {
	Summary    core.Summary
	ByCategory []core.CategoryAmount
	TopItems   []core.CategoryAmount
	Daily      []core.DateAmount
	// Records is the full table, income rows included.
	Records core.Table
}

// Build aggregates table against budget. Only expense rows count toward
// totals and groupings.
func Build(ctx context.Context, table core.Table, budget decimal.Decimal) (Report, error) {
	f, err := frame.Open(ctx, table)
	if err != nil {
		return Report{}, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	total, err := f.TotalExpense(ctx)
	if err != nil {
		return Report{}, err
	}
	byCategory, err := f.ByCategory(ctx)
	if err != nil {
		return Report{}, err
	}
	topItems, err := f.ByItem(ctx, TopItemsLimit)
	if err != nil {
		return Report{}, err
	}
	daily, err := f.ByDate(ctx)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Summary:    core.NewSummary(budget, total),
		ByCategory: labelled(byCategory),
		TopItems:   labelled(topItems),
		Daily:      daily,
		Records:    table,
	}, nil
}

func labelled(in []core.CategoryAmount) []core.CategoryAmount {
	for i := range in {
		if in[i].Name == "" {
			in[i].Name = UnlabeledName
		}
	}
	return in
}
