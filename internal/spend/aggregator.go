// Package spend answers "how much have I spent today".
package spend

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

// Aggregator sums stored amounts for a user on the current local day.
type Aggregator struct {
	reader store.Reader
	now    func() time.Time
}

// NewAggregator creates an Aggregator. A nil now uses time.Now.
func NewAggregator(reader store.Reader, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{reader: reader, now: now}
}

// Today returns the current date in the server's local calendar.
func (a *Aggregator) Today() civil.Date {
	return civil.DateOf(a.now())
}

// TodayTotal returns the sum of userID's amounts dated today. No rows gives 0.
func (a *Aggregator) TodayTotal(ctx context.Context, userID string) (int64, error) {
	return a.TotalOn(ctx, userID, a.Today())
}

// TotalOn returns the sum of userID's amounts dated date.
func (a *Aggregator) TotalOn(ctx context.Context, userID string, date civil.Date) (int64, error) {
	amounts, err := a.reader.ListAmounts(ctx, userID, date)
	if err != nil {
		return 0, fmt.Errorf("TotalOn: listing amounts for %s on %s: %w", userID, date, err)
	}

	var total int64
	for _, amount := range amounts {
		total += amount
	}
	return total, nil
}
