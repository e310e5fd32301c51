// Package pipeline holds the read-side collaborators: fetching stored rows,
// reshaping them into daily tables and exporting them as CSV.
package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

// StoreIngestion is the DataIngestion backed by a store.Reader.
type StoreIngestion struct {
	reader store.Reader
	log    zerolog.Logger
}

// NewStoreIngestion creates a StoreIngestion.
func NewStoreIngestion(reader store.Reader, log zerolog.Logger) *StoreIngestion {
	return &StoreIngestion{reader: reader, log: log}
}

// FetchRange implements DataIngestion.
func (s *StoreIngestion) FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, fmt.Errorf("FetchRange: %w", err)
	}

	records, err := s.reader.FetchRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("FetchRange: reading %s..%s for %s: %w", start, end, userID, err)
	}

	if len(records) == 0 {
		s.log.Warn().
			Str("user_id", userID).
			Str("start_date", start.String()).
			Str("end_date", end.String()).
			Msg("No expenses in range")
		return []expense.Record{}, nil
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("count", len(records)).
		Msg("Fetched expenses")

	return records, nil
}

// Ensure StoreIngestion implements the DataIngestion interface.
var _ DataIngestion = (*StoreIngestion)(nil)
