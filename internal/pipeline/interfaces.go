package pipeline

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// DataIngestion loads stored expense rows for a user and an inclusive date range.
// This interface enables mocking and testing of the export steps.
type DataIngestion interface {
	// FetchRange returns rows with start <= date <= end ordered by date.
	// An empty range yields an empty slice, not an error.
	FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error)
}

// DataTransformation reshapes fetched rows into a table.
type DataTransformation interface {
	ToTable(records []expense.Record) Table
}

// Uploader stores rendered exports and returns their URI.
type Uploader interface {
	UploadBytes(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}
