package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// Summary aggregates a Table.
type Summary struct {
	Total        int64                      `json:"total"`
	Days         int                        `json:"days"`
	ByCategory   map[expense.Category]int64 `json:"by_category"`
	DailyAverage decimal.Decimal            `json:"daily_average"`
}

// Summarize totals the table. DailyAverage is over days that have rows,
// rounded to two places; an empty table averages to zero.
func Summarize(table Table) Summary {
	s := Summary{
		Days:         len(table.Rows),
		ByCategory:   make(map[expense.Category]int64),
		DailyAverage: decimal.Zero,
	}

	for _, row := range table.Rows {
		s.Total += row.Total
		for c, amount := range row.ByCategory {
			s.ByCategory[c] += amount
		}
	}

	if s.Days > 0 {
		s.DailyAverage = decimal.NewFromInt(s.Total).
			Div(decimal.NewFromInt(int64(s.Days))).
			Round(2)
	}

	return s
}
