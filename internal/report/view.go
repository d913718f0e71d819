package report

import (
	"gagyebu/internal/core"

	"github.com/shopspring/decimal"
)

// View is the JSON and template shape of a Report: amounts as plain decimal
// strings plus pre-formatted won labels.
type View struct {
	Budget       Amount       `json:"budget"`
	TotalExpense Amount       `json:"total_expense"`
	Remaining    Amount       `json:"remaining"`
	Overspent    bool         `json:"overspent"`
	ByCategory   []NamedTotal `json:"by_category"`
	TopItems     []NamedTotal `json:"top_items"`
	Daily        []DailyTotal `json:"daily"`
	Records      []Record     `json:"records"`
}

type Amount struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type NamedTotal struct {
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
}

type DailyTotal struct {
	Date   string `json:"date"`
	Amount Amount `json:"amount"`
}

type Record struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Item     string `json:"item"`
	Amount   Amount `json:"amount"`
	Flow     string `json:"flow"`
	Note     string `json:"note,omitempty"`
}

// View flattens r for rendering.
func (r Report) View() View {
	v := View{
		Budget:       amount(r.Summary.Budget),
		TotalExpense: amount(r.Summary.TotalExpense),
		Remaining:    amount(r.Summary.Remaining),
		Overspent:    r.Summary.Remaining.IsNegative(),
		ByCategory:   named(r.ByCategory),
		TopItems:     named(r.TopItems),
		Daily:        make([]DailyTotal, 0, len(r.Daily)),
		Records:      make([]Record, 0, len(r.Records)),
	}
	for _, d := range r.Daily {
		v.Daily = append(v.Daily, DailyTotal{Date: d.Date.Format(core.DateLayout), Amount: amount(d.Amount)})
	}
	for _, t := range r.Records {
		v.Records = append(v.Records, Record{
			Date:     t.Date.Format(core.DateLayout),
			Category: t.Category,
			Item:     t.Item,
			Amount:   amount(t.Amount),
			Flow:     string(t.Flow),
			Note:     t.Note,
		})
	}
	return v
}

func named(in []core.CategoryAmount) []NamedTotal {
	out := make([]NamedTotal, 0, len(in))
	for _, c := range in {
		out = append(out, NamedTotal{Name: c.Name, Amount: amount(c.Amount)})
	}
	return out
}

func amount(d decimal.Decimal) Amount {
	return Amount{Value: d.String(), Label: core.FormatWon(d)}
}
