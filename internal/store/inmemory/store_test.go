package inmemory

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

func record(userID string, date civil.Date, amount int64, note string) *expense.Record {
	rec := expense.NewRecord(userID, date, expense.Command{
		Amount:   amount,
		Category: expense.CategoryFood,
		Mode:     expense.ModeNone,
		Note:     note,
	}, expense.SourceTelegram)
	return &rec
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	day := civil.Date{Year: 2024, Month: 3, Day: 1}
	rec := record("123", day, 25000, "lunch")

	first, err := s.UpsertExpense(ctx, rec)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if first.Status != http.StatusCreated {
		t.Errorf("first upsert status = %d, want 201", first.Status)
	}

	second, err := s.UpsertExpense(ctx, rec)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.Status != http.StatusNoContent {
		t.Errorf("second upsert status = %d, want 204", second.Status)
	}
	if !first.Succeeded() || !second.Succeeded() {
		t.Error("both writes should count as success")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_ConcurrentDuplicates(t *testing.T) {
	s := NewStore()
	rec := record("123", civil.Date{Year: 2024, Month: 3, Day: 1}, 100, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.UpsertExpense(context.Background(), rec); err != nil {
				t.Errorf("upsert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Len() = %d after concurrent duplicates, want 1", s.Len())
	}
}

func TestStore_Reads(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d1 := civil.Date{Year: 2024, Month: 3, Day: 1}
	d2 := d1.AddDays(1)
	d3 := d1.AddDays(5)

	for _, rec := range []*expense.Record{
		record("123", d2, 300, "b"),
		record("123", d1, 1000, "a"),
		record("123", d1, 2500, "c"),
		record("456", d1, 9999, "other user"),
		record("123", d3, 50, "outside"),
	} {
		if _, err := s.UpsertExpense(ctx, rec); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	amounts, err := s.ListAmounts(ctx, "123", d1)
	if err != nil {
		t.Fatalf("ListAmounts failed: %v", err)
	}
	if len(amounts) != 2 || amounts[0] != 1000 || amounts[1] != 2500 {
		t.Errorf("ListAmounts = %v, want [1000 2500]", amounts)
	}

	rows, err := s.FetchRange(ctx, "123", d1, d2)
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("FetchRange returned %d rows, want 3", len(rows))
	}
	if rows[2].Date != d2 {
		t.Errorf("rows not ordered by date: %+v", rows)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.UpsertExpense(ctx, record("1", civil.Date{Year: 2024, Month: 1, Day: 1}, 1, "")); err == nil {
		t.Error("expected error for canceled context")
	}
	if s.Len() != 0 {
		t.Error("nothing should be written when the context is canceled")
	}
}
