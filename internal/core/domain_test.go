package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	may1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-01", may1, true},
		{"2024-05-01 13:45:00", may1, true},
		{"2024/05/01", may1, true},
		{"45413", may1, true}, // spreadsheet serial
		{"45413.75", may1, true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidDate, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(tc.want), "%q: got %v", tc.in, got)
	}
}

func TestTableExpenses(t *testing.T) {
	table := Table{
		{Item: "라면", Amount: decimal.NewFromInt(1200), Flow: FlowExpense},
		{Item: "급여", Amount: decimal.NewFromInt(3000000), Flow: FlowIncome},
		{Item: "이체", Amount: decimal.NewFromInt(10), Flow: Flow("이체")},
		{Item: "커피", Amount: decimal.NewFromInt(4500), Flow: FlowExpense},
	}
	exp := table.Expenses()
	require.Equal(t, 2, exp.Len())
	assert.Equal(t, "라면", exp[0].Item)
	assert.Equal(t, "커피", exp[1].Item)
	assert.False(t, Flow("이체").IsExpense(), "unknown flow is not an expense")
	assert.False(t, Flow("이체").IsIncome(), "unknown flow is not income")
}

func TestNewSummaryAllowsNegativeRemaining(t *testing.T) {
	s := NewSummary(decimal.NewFromInt(400000), decimal.NewFromInt(450000))
	assert.Equal(t, "-50000", s.Remaining.String())
}
