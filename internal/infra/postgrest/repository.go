// Package postgrest stores expense rows in a Supabase table through its PostgREST API.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

const (
	restPath = "/rest/v1/"

	// preferIgnoreDuplicates turns a conflicting insert into a silent no-op.
	preferIgnoreDuplicates = "resolution=ignore-duplicates,return=minimal"

	conflictColumn = "fingerprint"
)

// Repository is the PostgREST implementation of store.Repository.
type Repository struct {
	baseURL    string
	table      string
	serviceKey string
	client     *http.Client
}

// NewRepository creates a repository for table at baseURL (e.g. https://xyz.supabase.co).
// Every request is bounded by timeout.
func NewRepository(baseURL, table, serviceKey string, timeout time.Duration) *Repository {
	return &Repository{
		baseURL:    baseURL,
		table:      table,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

// Close implements store.Repository.
func (r *Repository) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// UpsertExpense posts rec with on_conflict=fingerprint. The raw status and body
// are returned for any answer; only transport failures produce an error.
func (r *Repository) UpsertExpense(ctx context.Context, rec *expense.Record) (store.WriteResult, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: encoding row: %w", err)
	}

	query := url.Values{}
	query.Set("on_conflict", conflictColumn)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tableURL(query), bytes.NewReader(payload))
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: building request: %w", err)
	}
	r.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", preferIgnoreDuplicates)

	resp, err := r.client.Do(req)
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: posting row: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return store.WriteResult{}, fmt.Errorf("UpsertExpense: reading response: %w", err)
	}

	return store.WriteResult{Status: resp.StatusCode, Body: string(body)}, nil
}

type amountRow struct {
	Amount int64 `json:"amount"`
}

// ListAmounts implements store.Reader.
func (r *Repository) ListAmounts(ctx context.Context, userID string, date civil.Date) ([]int64, error) {
	query := url.Values{}
	query.Set("select", "amount")
	query.Set("user_id", "eq."+userID)
	query.Set("date", "eq."+date.String())

	var rows []amountRow
	if err := r.get(ctx, query, &rows); err != nil {
		return nil, fmt.Errorf("ListAmounts: %w", err)
	}

	amounts := make([]int64, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, row.Amount)
	}
	return amounts, nil
}

// FetchRange implements store.Reader.
func (r *Repository) FetchRange(ctx context.Context, userID string, start, end civil.Date) ([]expense.Record, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", "eq."+userID)
	query.Add("date", "gte."+start.String())
	query.Add("date", "lte."+end.String())
	query.Set("order", "date.asc")

	var rows []expense.Record
	if err := r.get(ctx, query, &rows); err != nil {
		return nil, fmt.Errorf("FetchRange: %w", err)
	}
	return rows, nil
}

// get runs a filtered select and decodes the JSON array into out.
func (r *Repository) get(ctx context.Context, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.tableURL(query), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	r.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("querying table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding rows: %w", err)
	}
	return nil
}

func (r *Repository) tableURL(query url.Values) string {
	return r.baseURL + restPath + url.PathEscape(r.table) + "?" + query.Encode()
}

func (r *Repository) authorize(req *http.Request) {
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
}

// Ensure Repository implements the Repository interface.
var _ store.Repository = (*Repository)(nil)
