package bigquery

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	bigquerylib "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
)

func TestResultFromStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     *bigquerylib.JobStatus
		wantStatus int
	}{
		{
			name: "row inserted",
			status: &bigquerylib.JobStatus{
				State:      bigquerylib.Done,
				Statistics: &bigquerylib.JobStatistics{Details: &bigquerylib.QueryStatistics{NumDMLAffectedRows: 1}},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "fingerprint already present",
			status: &bigquerylib.JobStatus{
				State:      bigquerylib.Done,
				Statistics: &bigquerylib.JobStatistics{Details: &bigquerylib.QueryStatistics{NumDMLAffectedRows: 0}},
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "merge inserted the row",
			status: &bigquerylib.JobStatus{
				State: bigquerylib.Done,
				Statistics: &bigquerylib.JobStatistics{Details: &bigquerylib.QueryStatistics{
					NumDMLAffectedRows: 1,
					DMLStats:           &bigquerylib.DMLStatistics{InsertedRowCount: 1},
				}},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "merge matched an existing row",
			status: &bigquerylib.JobStatus{
				State: bigquerylib.Done,
				Statistics: &bigquerylib.JobStatistics{Details: &bigquerylib.QueryStatistics{
					NumDMLAffectedRows: 1,
					DMLStats:           &bigquerylib.DMLStatistics{UpdatedRowCount: 1},
				}},
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "no statistics reported",
			status:     &bigquerylib.JobStatus{State: bigquerylib.Done},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultFromStatus(tt.status)
			if got.Status != tt.wantStatus {
				t.Errorf("resultFromStatus() status = %d, want %d", got.Status, tt.wantStatus)
			}
			if !got.Succeeded() {
				t.Errorf("resultFromStatus() = %+v, want success", got)
			}
		})
	}
}

func TestMergeParameters(t *testing.T) {
	day := civil.Date{Year: 2024, Month: 3, Day: 1}
	rec := expense.NewRecord("123", day, expense.Command{Amount: 25000, Category: expense.CategoryFood, Mode: expense.ModeNone, Note: "lunch"}, expense.SourceTelegram)

	params := mergeParameters(&rec)
	got := make(map[string]interface{}, len(params))
	for _, p := range params {
		got[p.Name] = p.Value
	}

	want := map[string]interface{}{
		"user_id":     "123",
		"date":        day,
		"amount":      int64(25000),
		"category":    "food",
		"mode":        "none",
		"note":        "lunch",
		"source":      "telegram",
		"fingerprint": rec.Fingerprint,
	}
	for name, value := range want {
		if got[name] != value {
			t.Errorf("parameter %s = %v, want %v", name, got[name], value)
		}
	}

	sql := fmt.Sprintf(mergeExpenseSQL, "finance", "daily_expenses")
	for name := range want {
		if !strings.Contains(sql, "@"+name) {
			t.Errorf("merge statement does not reference @%s", name)
		}
	}
	if !strings.Contains(sql, "`finance.daily_expenses`") {
		t.Errorf("merge statement has wrong table: %s", sql)
	}
}

func TestMergeExpenseSQL_Shape(t *testing.T) {
	sql := strings.Join(strings.Fields(fmt.Sprintf(mergeExpenseSQL, "finance", "daily_expenses")), " ")

	tests := []struct {
		name string
		want string
	}{
		{"keyed on fingerprint", "ON T.fingerprint = S.fingerprint"},
		{"matched rows are a no-op update", "WHEN MATCHED THEN UPDATE SET fingerprint = T.fingerprint"},
		{"new rows are inserted", "WHEN NOT MATCHED THEN INSERT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(sql, tt.want) {
				t.Errorf("merge statement missing %q:\n%s", tt.want, sql)
			}
		})
	}

	if strings.Index(sql, "WHEN MATCHED") > strings.Index(sql, "WHEN NOT MATCHED") {
		t.Errorf("WHEN MATCHED must precede WHEN NOT MATCHED:\n%s", sql)
	}
}

func TestExpenseRow_Record(t *testing.T) {
	row := &ExpenseRow{
		UserID:      "123",
		Date:        civil.Date{Year: 2024, Month: 3, Day: 2},
		Amount:      1500,
		Category:    "transport",
		Mode:        "motorcycle",
		Note:        "fuel",
		Source:      "telegram",
		Fingerprint: "abc",
		CreatedTS:   time.Now(),
	}

	rec := row.Record()
	if rec.Category != expense.CategoryTransport || rec.Mode != expense.ModeMotorcycle {
		t.Errorf("unexpected category/mode: %+v", rec)
	}
	if rec.Amount != 1500 || rec.Fingerprint != "abc" || rec.Date != row.Date {
		t.Errorf("fields not copied: %+v", rec)
	}
}

func TestInferSchema(t *testing.T) {
	schema, err := bigquerylib.InferSchema(ExpenseRow{})
	if err != nil {
		t.Fatalf("InferSchema failed: %v", err)
	}

	types := make(map[string]bigquerylib.FieldType)
	for _, f := range schema {
		types[f.Name] = f.Type
	}

	if types["date"] != bigquerylib.DateFieldType {
		t.Errorf("date type = %s, want DATE", types["date"])
	}
	if types["amount"] != bigquerylib.IntegerFieldType {
		t.Errorf("amount type = %s, want INTEGER", types["amount"])
	}
	if types["fingerprint"] != bigquerylib.StringFieldType {
		t.Errorf("fingerprint type = %s, want STRING", types["fingerprint"])
	}
}
