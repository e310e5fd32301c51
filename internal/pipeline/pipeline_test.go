package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/logger"
	"github.com/dvloznov/cashflow-sim/internal/store/inmemory"
)

var day1 = civil.Date{Year: 2024, Month: 3, Day: 1}

// mockUploader is a mock implementation of Uploader.
type mockUploader struct {
	UploadBytesFunc func(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}

func (m *mockUploader) UploadBytes(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, bucket, object, contentType, data)
	}
	return "gs://" + bucket + "/" + object, nil
}

// mockIngestion is a mock implementation of DataIngestion.
type mockIngestion struct {
	FetchRangeFunc func(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error)
}

func (m *mockIngestion) FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
	return m.FetchRangeFunc(ctx, userID, start, end)
}

func rec(date civil.Date, amount int64, category expense.Category, note string) expense.Record {
	return expense.NewRecord("123", date, expense.Command{
		Amount:   amount,
		Category: category,
		Mode:     expense.ModeNone,
		Note:     note,
	}, expense.SourceTelegram)
}

func seededStore(t *testing.T, records ...expense.Record) *inmemory.Store {
	t.Helper()
	s := inmemory.NewStore()
	for i := range records {
		if _, err := s.UpsertExpense(context.Background(), &records[i]); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	return s
}

func TestStoreIngestion_FetchRange(t *testing.T) {
	s := seededStore(t,
		rec(day1.AddDays(1), 3000, expense.CategoryFood, "dinner"),
		rec(day1, 1000, expense.CategoryFood, "coffee"),
		rec(day1.AddDays(10), 9000, expense.CategoryBill, "outside range"),
	)

	var buf bytes.Buffer
	ing := NewStoreIngestion(s, logger.NewWithWriter(&buf))

	records, err := ing.FetchRange(context.Background(), "123", day1, day1.AddDays(6))
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Date != day1 || records[1].Date != day1.AddDays(1) {
		t.Errorf("records not ordered by date: %s, %s", records[0].Date, records[1].Date)
	}
}

func TestStoreIngestion_FetchRangeEmpty(t *testing.T) {
	var buf bytes.Buffer
	ing := NewStoreIngestion(inmemory.NewStore(), logger.NewWithWriter(&buf))

	records, err := ing.FetchRange(context.Background(), "123", day1, day1)
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
	if !strings.Contains(buf.String(), "No expenses in range") {
		t.Errorf("expected warning log, got %s", buf.String())
	}
}

func TestStoreIngestion_FetchRangeInvalid(t *testing.T) {
	var buf bytes.Buffer
	ing := NewStoreIngestion(inmemory.NewStore(), logger.NewWithWriter(&buf))

	if _, err := ing.FetchRange(context.Background(), "123", day1, day1.AddDays(-1)); err == nil {
		t.Error("expected error for reversed range")
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   civil.Date
		end     civil.Date
		wantErr bool
	}{
		{name: "single day", start: day1, end: day1},
		{name: "one week", start: day1, end: day1.AddDays(6)},
		{name: "full limit", start: day1, end: day1.AddDays(MaxRangeDays - 1)},
		{name: "over limit", start: day1, end: day1.AddDays(MaxRangeDays), wantErr: true},
		{name: "reversed", start: day1, end: day1.AddDays(-1), wantErr: true},
		{name: "invalid date", start: civil.Date{Year: 2024, Month: 2, Day: 30}, end: day1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRange() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	start, end, err := ParseRange("2024-03-01", "2024-03-07")
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if start != day1 || end != day1.AddDays(6) {
		t.Errorf("got %s..%s", start, end)
	}

	if _, _, err := ParseRange("03/01/2024", "2024-03-07"); err == nil {
		t.Error("expected error for malformed start")
	}
}

func TestDailyTransformation_ToTable(t *testing.T) {
	records := []expense.Record{
		rec(day1.AddDays(1), 500, expense.CategoryTransport, "fuel"),
		rec(day1, 1000, expense.CategoryFood, "coffee"),
		rec(day1, 2500, expense.CategoryFood, "lunch"),
		rec(day1, 200000, expense.CategoryBill, "internet"),
	}

	table := DailyTransformation{}.ToTable(records)
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Date != day1 {
		t.Errorf("first row date = %s, want %s", first.Date, day1)
	}
	if first.ByCategory[expense.CategoryFood] != 3500 {
		t.Errorf("food = %d, want 3500", first.ByCategory[expense.CategoryFood])
	}
	if first.Total != 203500 {
		t.Errorf("total = %d, want 203500", first.Total)
	}
	if table.Rows[1].Total != 500 {
		t.Errorf("second row total = %d, want 500", table.Rows[1].Total)
	}
}

func TestTable_WriteCSV(t *testing.T) {
	table := DailyTransformation{}.ToTable([]expense.Record{
		rec(day1, 1000, expense.CategoryFood, "coffee"),
		rec(day1, 500, expense.CategoryTransport, "fuel"),
	})

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "date,transport,food,misc,bill,total\n2024-03-01,500,1000,0,0,1500\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		records     []expense.Record
		wantTotal   int64
		wantDays    int
		wantAverage string
	}{
		{name: "empty", records: nil, wantTotal: 0, wantDays: 0, wantAverage: "0"},
		{
			name: "two days",
			records: []expense.Record{
				rec(day1, 1000, expense.CategoryFood, "coffee"),
				rec(day1.AddDays(1), 2500, expense.CategoryFood, "lunch"),
			},
			wantTotal:   3500,
			wantDays:    2,
			wantAverage: "1750",
		},
		{
			name: "repeating average",
			records: []expense.Record{
				rec(day1, 100, expense.CategoryMisc, "a"),
				rec(day1.AddDays(1), 100, expense.CategoryMisc, "b"),
				rec(day1.AddDays(2), 0, expense.CategoryMisc, "c"),
			},
			wantTotal:   200,
			wantDays:    3,
			wantAverage: "66.67",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(DailyTransformation{}.ToTable(tt.records))
			if s.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", s.Total, tt.wantTotal)
			}
			if s.Days != tt.wantDays {
				t.Errorf("Days = %d, want %d", s.Days, tt.wantDays)
			}
			if s.DailyAverage.String() != tt.wantAverage {
				t.Errorf("DailyAverage = %s, want %s", s.DailyAverage, tt.wantAverage)
			}
		})
	}
}

func TestExportPipeline(t *testing.T) {
	s := seededStore(t, rec(day1, 1000, expense.CategoryFood, "coffee"))

	var gotBucket, gotObject, gotContentType string
	var gotData []byte
	uploader := &mockUploader{UploadBytesFunc: func(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
		gotBucket, gotObject, gotContentType, gotData = bucket, object, contentType, data
		return "gs://" + bucket + "/" + object, nil
	}}

	var buf bytes.Buffer
	p := NewExportPipeline(NewStoreIngestion(s, logger.NewWithWriter(&buf)), DailyTransformation{}, uploader, "exports-bucket")

	state := &PipelineState{
		UserID:    "123",
		StartDate: day1,
		EndDate:   day1.AddDays(6),
		CreatedAt: time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC),
	}
	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	wantObject := "exports/123/2024-03-01_2024-03-07_20240308T100000Z.csv"
	if gotBucket != "exports-bucket" || gotObject != wantObject {
		t.Errorf("uploaded to %s/%s, want exports-bucket/%s", gotBucket, gotObject, wantObject)
	}
	if gotContentType != CSVContentType {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.Contains(string(gotData), "2024-03-01,0,1000,0,0,1000") {
		t.Errorf("unexpected csv %q", gotData)
	}
	if state.ObjectURI != "gs://exports-bucket/"+wantObject {
		t.Errorf("ObjectURI = %q", state.ObjectURI)
	}
	if state.Summary.Total != 1000 {
		t.Errorf("Summary.Total = %d, want 1000", state.Summary.Total)
	}
}

func TestPipeline_StopsOnFailure(t *testing.T) {
	uploadCalled := false
	uploader := &mockUploader{UploadBytesFunc: func(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
		uploadCalled = true
		return "", nil
	}}
	ingestion := &mockIngestion{FetchRangeFunc: func(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
		return nil, errors.New("store down")
	}}

	p := NewExportPipeline(ingestion, DailyTransformation{}, uploader, "bucket")
	err := p.Execute(context.Background(), &PipelineState{UserID: "123", StartDate: day1, EndDate: day1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "pipeline step 1 failed") {
		t.Errorf("error = %v, want step 1 failure", err)
	}
	if uploadCalled {
		t.Error("upload should not run after a failed fetch")
	}
}

func TestReportPipeline(t *testing.T) {
	ingestion := &mockIngestion{FetchRangeFunc: func(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
		return []expense.Record{rec(day1, 700, expense.CategoryMisc, "")}, nil
	}}

	state := &PipelineState{UserID: "123", StartDate: day1, EndDate: day1}
	if err := NewReportPipeline(ingestion, DailyTransformation{}).Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(state.CSV) == 0 {
		t.Error("expected rendered CSV")
	}
	if state.ObjectURI != "" {
		t.Errorf("report pipeline should not upload, got %q", state.ObjectURI)
	}
}
