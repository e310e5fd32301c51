package bigquery

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// ExpenseRow represents an expense record in BigQuery.
type ExpenseRow struct {
	UserID string     `bigquery:"user_id"`
	Date   civil.Date `bigquery:"date"`

	Amount   int64  `bigquery:"amount"`
	Category string `bigquery:"category"`
	Mode     string `bigquery:"mode"`
	Note     string `bigquery:"note"`

	Source      string `bigquery:"source"`
	Fingerprint string `bigquery:"fingerprint"` // unique by MERGE; BigQuery has no constraint

	CreatedTS time.Time `bigquery:"created_ts"`
}

// Record converts the row to the domain record.
func (r *ExpenseRow) Record() expense.Record {
	return expense.Record{
		UserID:      r.UserID,
		Date:        r.Date,
		Amount:      r.Amount,
		Category:    expense.Category(r.Category),
		Mode:        expense.Mode(r.Mode),
		Note:        r.Note,
		Source:      r.Source,
		Fingerprint: r.Fingerprint,
	}
}

type amountRow struct {
	Amount int64 `bigquery:"amount"`
}
