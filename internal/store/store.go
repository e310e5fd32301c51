// Package store defines the persistence contract for expense rows.
// Implementations live under internal/infra and internal/store/inmemory.
package store

import (
	"context"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// WriteResult is the store's answer to an upsert. Non-2xx answers are
// reported here rather than as errors so callers can show them verbatim.
type WriteResult struct {
	Status int
	Body   string
}

// Succeeded reports whether the row is now stored: 201 for a new row,
// 204 when the fingerprint was already present and the write was ignored.
func (r WriteResult) Succeeded() bool {
	return r.Status == http.StatusCreated || r.Status == http.StatusNoContent
}

// Created is the result of inserting a new row.
func Created() WriteResult {
	return WriteResult{Status: http.StatusCreated}
}

// Duplicate is the result of a write whose fingerprint already exists.
func Duplicate() WriteResult {
	return WriteResult{Status: http.StatusNoContent}
}

// Writer performs idempotent writes keyed by Record.Fingerprint.
type Writer interface {
	// UpsertExpense inserts rec unless a row with the same fingerprint exists.
	// The error is non-nil only for transport failures.
	UpsertExpense(ctx context.Context, rec *expense.Record) (WriteResult, error)
}

// Reader serves the read side: daily totals and range fetches.
type Reader interface {
	// ListAmounts returns the amount of every row for userID on date.
	ListAmounts(ctx context.Context, userID string, date civil.Date) ([]int64, error)

	// FetchRange returns the rows for userID with start <= date <= end, ordered by date.
	FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error)
}

// Repository is a full store backend.
type Repository interface {
	Writer
	Reader

	// Close releases client resources.
	Close() error
}
