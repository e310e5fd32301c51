package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

// EnsureTableWithClient creates dataset.table with the ExpenseRow schema,
// partitioned by date. It returns created=false when the table already exists.
func EnsureTableWithClient(ctx context.Context, client *bigquery.Client, dataset, table string) (created bool, err error) {
	ref := client.Dataset(dataset).Table(table)

	if _, err := ref.Metadata(ctx); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(ExpenseRow{})
	if err != nil {
		return false, fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}

	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "date",
		},
		Clustering: &bigquery.Clustering{
			Fields: []string{"user_id", "fingerprint"},
		},
	}

	if err := ref.Create(ctx, meta); err != nil {
		return false, fmt.Errorf("EnsureTable: creating table: %w", err)
	}

	return true, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
