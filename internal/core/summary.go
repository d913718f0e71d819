package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by a label (category or item).
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// DateAmount is one point of the daily expense trend.
type DateAmount struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Summary holds the three headline numbers of the dashboard.
type Summary struct {
	Budget       decimal.Decimal
	TotalExpense decimal.Decimal
	Remaining    decimal.Decimal // may be negative
}

// NewSummary derives Remaining from the budget and the expense total.
func NewSummary(budget, totalExpense decimal.Decimal) Summary {
	return Summary{
		Budget:       budget,
		TotalExpense: totalExpense,
		Remaining:    budget.Sub(totalExpense),
	}
}
