// Package api wires the HTTP surface: the Telegram webhook plus the read and export API.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-sim/internal/api/handlers"
	"github.com/dvloznov/cashflow-sim/internal/api/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Webhook  *handlers.WebhookHandler
	Expenses *handlers.ExpensesHandler
	Exports  *handlers.ExportsHandler
	Jobs     *handlers.JobsHandler
	Now      func() time.Time
}

// NewRouter mounts every route and applies the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	now := h.Now
	if now == nil {
		now = time.Now
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/webhook", methods(map[string]http.HandlerFunc{
		http.MethodPost: h.Webhook.HandleUpdate,
	}))

	mux.HandleFunc("/api/spend/today", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.Expenses.TodaySpend,
	}))

	mux.HandleFunc("/api/expenses", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.Expenses.ListExpenses,
	}))

	mux.HandleFunc("/api/exports", methods(map[string]http.HandlerFunc{
		http.MethodPost: h.Exports.CreateExport,
	}))

	mux.HandleFunc("/api/jobs", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.Jobs.ListJobs,
	}))

	mux.HandleFunc("/api/jobs/", methods(map[string]http.HandlerFunc{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		},
	}))

	mux.HandleFunc("/health", handlers.Health(now))
	mux.HandleFunc("/", handlers.Welcome)

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
	)
}

// methods dispatches on r.Method and answers 405 for anything else.
func methods(byMethod map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := byMethod[r.Method]; ok {
			handler(w, r)
			return
		}
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
