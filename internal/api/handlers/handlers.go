package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-sim/internal/api/middleware"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/jobs"
	"github.com/dvloznov/cashflow-sim/internal/pipeline"
	"github.com/dvloznov/cashflow-sim/internal/spend"
	"github.com/dvloznov/cashflow-sim/internal/telegram"
)

// DefaultRangeDays is the window used by range endpoints when no start date is given.
const DefaultRangeDays = 30

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	Handle(ctx context.Context, update telegram.Update) (*telegram.Reply, error)
}

// WebhookHandler receives Telegram webhook deliveries.
type WebhookHandler struct {
	service UpdateHandler
	log     zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service UpdateHandler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

// HandleUpdate handles POST /webhook. The reply is returned as the response
// body so Telegram delivers it without a separate sendMessage call.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.service.Handle(r.Context(), update)
	if err != nil {
		h.log.Error().Err(err).Int64("update_id", update.UpdateID).Msg("Failed to handle update")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if reply == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, reply)
}

// ExpensesHandler serves the read side: today's total and range listings.
type ExpensesHandler struct {
	aggregator *spend.Aggregator
	ingestion  pipeline.DataIngestion
	log        zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(aggregator *spend.Aggregator, ingestion pipeline.DataIngestion, log zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{
		aggregator: aggregator,
		ingestion:  ingestion,
		log:        log,
	}
}

// TodaySpend handles GET /api/spend/today?user_id=
func (h *ExpensesHandler) TodaySpend(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	today := h.aggregator.Today()
	total, err := h.aggregator.TotalOn(r.Context(), userID, today)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute today's spend")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute spend")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"date":      today,
		"total":     total,
		"formatted": expense.FormatAmount(total),
	})
}

// ListExpenses handles GET /api/expenses?user_id=&start_date=&end_date=
// end_date defaults to today and start_date to DefaultRangeDays before it.
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	endDate := h.aggregator.Today()
	if raw := query.Get("end_date"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		endDate = d
	}

	startDate := endDate.AddDays(-(DefaultRangeDays - 1))
	if raw := query.Get("start_date"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		startDate = d
	}

	if err := pipeline.ValidateRange(startDate, endDate); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.ingestion.FetchRange(r.Context(), userID, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch expenses")
		return
	}

	summary := pipeline.Summarize(pipeline.DailyTransformation{}.ToTable(records))

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses":   records,
		"count":      len(records),
		"start_date": startDate,
		"end_date":   endDate,
		"summary":    summary,
	})
}

// ExportsHandler enqueues CSV export jobs.
type ExportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewExportsHandler creates a new exports handler. A nil publisher disables exports.
func NewExportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ExportsHandler {
	return &ExportsHandler{
		publisher: publisher,
		log:       log,
	}
}

// CreateExport handles POST /api/exports
func (h *ExportsHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Exports are disabled: no bucket configured")
		return
	}

	var req struct {
		UserID    string `json:"user_id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" || req.StartDate == "" || req.EndDate == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id, start_date and end_date are required")
		return
	}

	startDate, endDate, err := pipeline.ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.ExportJob{
		UserID:    req.UserID,
		StartDate: startDate,
		EndDate:   endDate,
	}

	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", job.UserID).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health.
func Health(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok":     true,
			"status": "healthy",
			"time":   now().Format(time.RFC3339),
		})
	}
}

// Welcome handles GET / and answers 404 for any other unmatched path.
func Welcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Cashflow Simulation Analysis API",
	})
}
