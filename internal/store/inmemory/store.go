package inmemory

import (
	"context"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

// Store is an in-memory expense repository with a unique fingerprint constraint.
// It is safe for concurrent use. Data is lost on restart; it backs local
// development (STORE_BACKEND=memory) and tests.
type Store struct {
	mu   sync.RWMutex
	rows map[string]expense.Record
	seq  map[string]int
	next int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		rows: make(map[string]expense.Record),
		seq:  make(map[string]int),
	}
}

// UpsertExpense implements store.Writer.
// A fingerprint that is already stored leaves the existing row untouched.
func (s *Store) UpsertExpense(ctx context.Context, rec *expense.Record) (store.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return store.WriteResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[rec.Fingerprint]; exists {
		return store.Duplicate(), nil
	}

	s.rows[rec.Fingerprint] = *rec
	s.seq[rec.Fingerprint] = s.next
	s.next++

	return store.Created(), nil
}

// ListAmounts implements store.Reader.
func (s *Store) ListAmounts(ctx context.Context, userID string, date civil.Date) ([]int64, error) {
	rows, err := s.FetchRange(ctx, userID, date, date)
	if err != nil {
		return nil, err
	}

	amounts := make([]int64, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, row.Amount)
	}
	return amounts, nil
}

// FetchRange implements store.Reader. Rows are ordered by date, then insertion order.
func (s *Store) FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []expense.Record
	for _, row := range s.rows {
		if row.UserID != userID {
			continue
		}
		if row.Date.Before(start) || row.Date.After(end) {
			continue
		}
		result = append(result, row)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.Before(result[j].Date)
		}
		return s.seq[result[i].Fingerprint] < s.seq[result[j].Fingerprint]
	})

	return result, nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements the Repository interface.
var _ store.Repository = (*Store)(nil)
