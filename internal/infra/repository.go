// Package infra selects and constructs the configured store backend.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/cashflow-sim/internal/config"
	bqstore "github.com/dvloznov/cashflow-sim/internal/infra/bigquery"
	ddbstore "github.com/dvloznov/cashflow-sim/internal/infra/dynamodb"
	"github.com/dvloznov/cashflow-sim/internal/infra/postgrest"
	"github.com/dvloznov/cashflow-sim/internal/store"
	"github.com/dvloznov/cashflow-sim/internal/store/inmemory"
)

// NewRepository builds the store.Repository named by cfg.Backend.
// The caller owns the result and must Close it.
func NewRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.Backend {
	case config.BackendPostgREST:
		return postgrest.NewRepository(cfg.SupabaseURL, cfg.SupabaseTable, cfg.SupabaseServiceRole, cfg.StoreTimeout), nil
	case config.BackendBigQuery:
		repo, err := bqstore.NewExpenseRepository(ctx, cfg.GCPProject, cfg.BQDataset, cfg.BQTable, cfg.StoreTimeout)
		if err != nil {
			return nil, fmt.Errorf("NewRepository: %w", err)
		}
		return repo, nil
	case config.BackendDynamoDB:
		repo, err := ddbstore.NewRepository(ctx, cfg.AWSRegion, cfg.DynamoTable, cfg.UserDateIndex, cfg.StoreTimeout)
		if err != nil {
			return nil, fmt.Errorf("NewRepository: %w", err)
		}
		return repo, nil
	case config.BackendMemory:
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("NewRepository: unknown backend %q", cfg.Backend)
	}
}
