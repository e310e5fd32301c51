package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

// ExpenseRepository is the BigQuery implementation of store.Repository.
// It holds a shared BigQuery client to avoid creating a new connection for
// each operation.
type ExpenseRepository struct {
	client  *bigquery.Client
	dataset string
	table   string
	timeout time.Duration
}

// NewExpenseRepository creates a repository with its own BigQuery client.
func NewExpenseRepository(ctx context.Context, projectID, dataset, table string, timeout time.Duration) (*ExpenseRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExpenseRepository: creating client: %w", err)
	}
	return NewExpenseRepositoryWithClient(client, dataset, table, timeout), nil
}

// NewExpenseRepositoryWithClient wraps an existing client.
func NewExpenseRepositoryWithClient(client *bigquery.Client, dataset, table string, timeout time.Duration) *ExpenseRepository {
	return &ExpenseRepository{
		client:  client,
		dataset: dataset,
		table:   table,
		timeout: timeout,
	}
}

// Close closes the BigQuery client connection.
func (r *ExpenseRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// UpsertExpense delegates to UpsertExpenseWithClient under the store timeout.
func (r *ExpenseRepository) UpsertExpense(ctx context.Context, rec *expense.Record) (store.WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return UpsertExpenseWithClient(ctx, r.client, r.dataset, r.table, rec)
}

// ListAmounts delegates to ListAmountsWithClient under the store timeout.
func (r *ExpenseRepository) ListAmounts(ctx context.Context, userID string, date civil.Date) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return ListAmountsWithClient(ctx, r.client, r.dataset, r.table, userID, date)
}

// FetchRange delegates to FetchRangeWithClient.
func (r *ExpenseRepository) FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
	return FetchRangeWithClient(ctx, r.client, r.dataset, r.table, userID, start, end)
}

// EnsureTable delegates to EnsureTableWithClient.
func (r *ExpenseRepository) EnsureTable(ctx context.Context) (bool, error) {
	return EnsureTableWithClient(ctx, r.client, r.dataset, r.table)
}

// Ensure ExpenseRepository implements the Repository interface.
var _ store.Repository = (*ExpenseRepository)(nil)
