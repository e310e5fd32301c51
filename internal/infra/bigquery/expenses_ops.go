package bigquery

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
	"google.golang.org/api/iterator"
)

// mergeExpenseSQL inserts the row only when no row carries the same fingerprint.
// The no-op WHEN MATCHED branch makes it mutating DML: concurrent merges of
// one fingerprint serialize or fail with a conflict rather than both inserting.
const mergeExpenseSQL = "MERGE `%s.%s` T\n" + `
		USING (SELECT @fingerprint AS fingerprint) S
		ON T.fingerprint = S.fingerprint
		WHEN MATCHED THEN
		  UPDATE SET fingerprint = T.fingerprint
		WHEN NOT MATCHED THEN
		  INSERT (user_id, date, amount, category, mode, note, source, fingerprint, created_ts)
		  VALUES (@user_id, @date, @amount, @category, @mode, @note, @source, @fingerprint, CURRENT_TIMESTAMP())
	`

// UpsertExpenseWithClient merges rec into dataset.table keyed by fingerprint.
// A job that runs but fails (bad schema, permissions, concurrent DML) is
// reported as a 422 WriteResult carrying the job error; failing to submit or
// poll the job is returned as an error.
func UpsertExpenseWithClient(ctx context.Context, client *bigquery.Client, dataset, table string, rec *expense.Record) (store.WriteResult, error) {
	q := client.Query(fmt.Sprintf(mergeExpenseSQL, dataset, table))
	q.Parameters = mergeParameters(rec)

	job, err := q.Run(ctx)
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: running merge query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: waiting for job: %w", err)
	}

	return resultFromStatus(status), nil
}

func mergeParameters(rec *expense.Record) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "user_id", Value: rec.UserID},
		{Name: "date", Value: rec.Date},
		{Name: "amount", Value: rec.Amount},
		{Name: "category", Value: string(rec.Category)},
		{Name: "mode", Value: string(rec.Mode)},
		{Name: "note", Value: rec.Note},
		{Name: "source", Value: rec.Source},
		{Name: "fingerprint", Value: rec.Fingerprint},
	}
}

// resultFromStatus maps a finished MERGE job to the store's status codes.
// A matched row counts as updated, so only the inserted count tells a new
// row from a duplicate.
func resultFromStatus(status *bigquery.JobStatus) store.WriteResult {
	if err := status.Err(); err != nil {
		return store.WriteResult{Status: http.StatusUnprocessableEntity, Body: err.Error()}
	}

	if status.Statistics == nil {
		return store.Created()
	}
	qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics)
	if !ok {
		return store.Created()
	}

	if qs.DMLStats != nil {
		if qs.DMLStats.InsertedRowCount == 0 {
			return store.Duplicate()
		}
		return store.Created()
	}
	if qs.NumDMLAffectedRows == 0 {
		return store.Duplicate()
	}
	return store.Created()
}

// ListAmountsWithClient returns the amounts for userID on date.
func ListAmountsWithClient(ctx context.Context, client *bigquery.Client, dataset, table, userID string, date civil.Date) ([]int64, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT amount
		FROM `+"`%s.%s`"+`
		WHERE user_id = @user_id
		  AND date = @date
	`, dataset, table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "date", Value: date},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAmounts: query read: %w", err)
	}

	amounts := []int64{}
	for {
		var r amountRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAmounts: iter next: %w", err)
		}
		amounts = append(amounts, r.Amount)
	}

	return amounts, nil
}

// FetchRangeWithClient returns rows for userID between start and end inclusive.
func FetchRangeWithClient(ctx context.Context, client *bigquery.Client, dataset, table, userID string, start, end civil.Date) ([]expense.Record, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			user_id,
			date,
			amount,
			category,
			mode,
			note,
			source,
			fingerprint,
			created_ts
		FROM `+"`%s.%s`"+`
		WHERE user_id = @user_id
		  AND date >= @start_date
		  AND date <= @end_date
		ORDER BY date, created_ts
	`, dataset, table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchRange: query read: %w", err)
	}

	var records []expense.Record
	for {
		var r ExpenseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FetchRange: iter next: %w", err)
		}
		records = append(records, r.Record())
	}

	return records, nil
}
