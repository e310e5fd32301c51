package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-sim/internal/api"
	"github.com/dvloznov/cashflow-sim/internal/api/handlers"
	"github.com/dvloznov/cashflow-sim/internal/config"
	"github.com/dvloznov/cashflow-sim/internal/gcs"
	"github.com/dvloznov/cashflow-sim/internal/infra"
	"github.com/dvloznov/cashflow-sim/internal/ingest"
	"github.com/dvloznov/cashflow-sim/internal/jobs"
	"github.com/dvloznov/cashflow-sim/internal/jobs/inmemory"
	"github.com/dvloznov/cashflow-sim/internal/logger"
	"github.com/dvloznov/cashflow-sim/internal/pipeline"
	"github.com/dvloznov/cashflow-sim/internal/spend"
	"github.com/dvloznov/cashflow-sim/internal/store"
)

func main() {
	log := logger.New(config.DefaultLogLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Flags override the environment.
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	bucket := flag.String("bucket", cfg.GCSBucket, "GCS bucket for CSV exports (or set GCS_BUCKET env)")
	flag.Parse()
	cfg.Port = *port
	cfg.GCSBucket = *bucket

	log = logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if len(cfg.AllowList) == 0 {
		log.Warn().Msg("ALLOWED_CHAT_IDS is empty - every chat may log expenses")
	}

	ctx := logger.WithContext(context.Background(), log)

	repo, err := infra.NewRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(cfg.Backend)).Msg("Failed to create expense repository")
	}
	defer repo.Close()

	log.Info().Str("backend", string(cfg.Backend)).Msg("Expense repository ready")

	ingestion := pipeline.NewStoreIngestion(repo, log)

	// Export jobs run only when a bucket is configured.
	jobStore := inmemory.NewStore()
	var publisher jobs.Publisher
	var jobQueue *inmemory.Queue

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.GCSBucket == "" {
		log.Warn().Msg("No GCS bucket configured - exports will be disabled")
	} else {
		uploader, err := gcs.NewStorageUploader(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage uploader")
		}
		defer uploader.Close()

		exportPipeline := pipeline.NewExportPipeline(ingestion, pipeline.DailyTransformation{}, uploader, cfg.GCSBucket)

		jobQueue = inmemory.NewQueue(100, inmemory.DefaultWorkers, jobStore)
		publisher = jobQueue

		jobHandler := func(ctx context.Context, job *jobs.ExportJob) error {
			log.Info().
				Str("job_id", job.JobID).
				Str("user_id", job.UserID).
				Str("start_date", job.StartDate.String()).
				Str("end_date", job.EndDate.String()).
				Msg("Processing export job")

			state := &pipeline.PipelineState{
				UserID:    job.UserID,
				StartDate: job.StartDate,
				EndDate:   job.EndDate,
				CreatedAt: job.CreatedAt,
			}
			if err := exportPipeline.Execute(ctx, state); err != nil {
				log.Error().Err(err).Str("job_id", job.JobID).Msg("Export pipeline failed")
				return err
			}

			job.ObjectURI = state.ObjectURI
			job.Rows = len(state.Records)

			log.Info().
				Str("job_id", job.JobID).
				Str("object_uri", job.ObjectURI).
				Int("rows", job.Rows).
				Msg("Export completed")
			return nil
		}

		log.Info().Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start export worker")
		}
	}

	handler := newHandler(cfg, repo, publisher, jobStore, time.Now, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports.
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// newHandler builds the ingestion service and read API over repo and mounts them.
// A nil publisher disables exports.
func newHandler(cfg *config.Config, repo store.Repository, publisher jobs.Publisher, jobStore jobs.JobStore, now func() time.Time, log zerolog.Logger) http.Handler {
	service := ingest.NewService(cfg.AllowList, repo, now, log)
	aggregator := spend.NewAggregator(repo, now)
	ingestion := pipeline.NewStoreIngestion(repo, log)

	return api.NewRouter(api.Handlers{
		Webhook:  handlers.NewWebhookHandler(service, log),
		Expenses: handlers.NewExpensesHandler(aggregator, ingestion, log),
		Exports:  handlers.NewExportsHandler(publisher, log),
		Jobs:     handlers.NewJobsHandler(jobStore, log),
		Now:      now,
	}, log)
}
