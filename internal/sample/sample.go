// Package sample synthesizes a demonstration ledger shown when no usable
// workbook is available.
package sample

import (
	"math/rand/v2"
	"time"

	"gagyebu/internal/core"

	"github.com/shopspring/decimal"
)

const (
	// Rows is the number of records in a sample table.
	Rows = 50

	maxDay    = 28 // exclusive
	minAmount = 1000
	maxAmount = 50000 // exclusive
	// incomeChance is the probability that a row is income.
	incomeChance = 0.2
)

var (
	Categories = []string{"식비", "외식비", "생활용품", "건강", "문화생활"}
	Items      = []string{"라면", "커피", "휴지", "약", "영화티켓", "점심", "저녁", "간식", "음료", "책"}
)

// Generator builds sample tables. The same Seed and month always produce the
// same table.
type Generator struct {
	Seed uint64
}

func New(seed uint64) *Generator {
	return &Generator{Seed: seed}
}

// Generate returns Rows transactions dated within the month of month.
func (g *Generator) Generate(month time.Time) core.Table {
	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))
	y, m, _ := month.Date()

	out := make(core.Table, 0, Rows)
	for range Rows {
		day := 1 + rng.IntN(maxDay-1)
		flow := core.FlowExpense
		if rng.Float64() < incomeChance {
			flow = core.FlowIncome
		}
		out = append(out, core.Transaction{
			Date:     time.Date(y, m, day, 0, 0, 0, 0, time.UTC),
			Category: Categories[rng.IntN(len(Categories))],
			Item:     Items[rng.IntN(len(Items))],
			Amount:   decimal.NewFromInt(int64(minAmount + rng.IntN(maxAmount-minAmount))),
			Flow:     flow,
		})
	}
	return out
}
