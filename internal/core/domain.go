package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Column headers of a ledger sheet, as they appear after header cleanup.
const (
	ColDate     = "날짜"
	ColCategory = "분류"
	ColItem     = "항목"
	ColAmount   = "금액"
	ColFlow     = "수입/지출"
	ColNote     = "비고"
)

// RequiredColumns lists the headers a sheet must carry, in export order.
var RequiredColumns = []string{ColDate, ColCategory, ColItem, ColAmount, ColFlow, ColNote}

const (
	FlowIncome  Flow = "수입"
	FlowExpense Flow = "지출"
)

type (
	// Flow is the income/expense marker of a row. Values other than
	// FlowIncome and FlowExpense are kept verbatim.
	Flow string

	Transaction struct {
		Date     time.Time
		Category string
		Item     string
		Amount   decimal.Decimal
		Flow     Flow
		Note     string
	}

	// Table is an ordered set of transactions, in source row order.
	Table []Transaction
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

func (f Flow) IsExpense() bool { return f == FlowExpense }

func (f Flow) IsIncome() bool { return f == FlowIncome }

// Expenses returns the rows whose flow is FlowExpense.
func (t Table) Expenses() Table {
	out := make(Table, 0, len(t))
	for _, tx := range t {
		if tx.Flow.IsExpense() {
			out = append(out, tx)
		}
	}
	return out
}

func (t Table) Len() int { return len(t) }

// Clone returns a copy that shares no backing array with t.
func (t Table) Clone() Table {
	return append(Table(nil), t...)
}
