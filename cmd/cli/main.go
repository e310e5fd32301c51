package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-sim/internal/config"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/gcs"
	"github.com/dvloznov/cashflow-sim/internal/infra"
	bqstore "github.com/dvloznov/cashflow-sim/internal/infra/bigquery"
	"github.com/dvloznov/cashflow-sim/internal/logger"
	"github.com/dvloznov/cashflow-sim/internal/pipeline"
	"github.com/dvloznov/cashflow-sim/internal/spend"
	"github.com/dvloznov/cashflow-sim/internal/store"
	"github.com/dvloznov/cashflow-sim/internal/telegram"
)

func main() {
	log := logger.New(config.DefaultLogLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.New(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "today":
		runToday(log, cfg)
	case "fetch":
		runFetch(log, cfg)
	case "export":
		runExport(log, cfg)
	case "set-webhook":
		runSetWebhook(log, cfg)
	case "bq-init":
		runBQInit(log, cfg)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// commands lists the subcommands in usage order.
var commands = []struct {
	name, help string
}{
	{"parse", "Parse an /add command and print its fingerprint (no writes)"},
	{"today", "Print today's total for a chat"},
	{"fetch", "Print a chat's expenses for a date range as CSV"},
	{"export", "Export a date range as CSV to GCS"},
	{"set-webhook", "Register the webhook URL with Telegram"},
	{"bq-init", "Create the BigQuery expenses table"},
	{"help", "Show this help message"},
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cashflow-sim CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  cli <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.help)
	}
	fmt.Fprintln(w, "\nRun 'cli <command> -h' for more information on a command.")
}

func openRepository(ctx context.Context, log zerolog.Logger, cfg *config.Config) store.Repository {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	repo, err := infra.NewRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(cfg.Backend)).Msg("Failed to create expense repository")
	}
	return repo
}

func parseRangeFlags(log zerolog.Logger, rawStart, rawEnd string) (civil.Date, civil.Date) {
	start, end, err := resolveRange(rawStart, rawEnd, civil.DateOf(time.Now()))
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid date range")
	}
	return start, end
}

// resolveRange defaults a missing end to today and a missing start to the end.
func resolveRange(rawStart, rawEnd string, today civil.Date) (civil.Date, civil.Date, error) {
	if rawEnd == "" {
		rawEnd = today.String()
	}
	if rawStart == "" {
		rawStart = rawEnd
	}
	return pipeline.ParseRange(rawStart, rawEnd)
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	user := fs.String("user", "0", "Chat id used for the fingerprint")
	date := fs.String("date", "", "Date used for the fingerprint, YYYY-MM-DD (defaults to today)")
	fs.Parse(os.Args[2:])

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		log.Fatal().Msg("Usage: cli parse [-user ID] [-date YYYY-MM-DD] /add <amount> <category> <mode> [note]")
	}

	day := civil.DateOf(time.Now())
	if *date != "" {
		d, err := civil.ParseDate(*date)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid -date")
		}
		day = d
	}

	if err := describeCommand(os.Stdout, *user, day, text); err != nil {
		fmt.Println(err.Error())
		os.Exit(2)
	}
}

// describeCommand prints the confirmation and fingerprint text would produce.
// Rejections are returned unprinted.
func describeCommand(w io.Writer, userID string, day civil.Date, text string) error {
	cmd, err := expense.ParseCommand(text)
	if err != nil {
		return err
	}

	rec := expense.NewRecord(userID, day, cmd, expense.SourceTelegram)
	fmt.Fprintln(w, rec.Confirmation())
	fmt.Fprintf(w, "note:        %q\n", rec.Note)
	fmt.Fprintf(w, "fingerprint: %s\n", rec.Fingerprint)
	return nil
}

func runToday(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("today", flag.ExitOnError)
	user := fs.String("user", "", "Chat id (required)")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	repo := openRepository(ctx, log, cfg)
	defer repo.Close()

	agg := spend.NewAggregator(repo, time.Now)
	total, err := agg.TodayTotal(ctx, *user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute today's total")
	}

	fmt.Printf("%s: %s\n", agg.Today(), expense.FormatAmount(total))
}

func runFetch(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	user := fs.String("user", "", "Chat id (required)")
	startDate := fs.String("start-date", "", "Start date, YYYY-MM-DD (defaults to end date)")
	endDate := fs.String("end-date", "", "End date, YYYY-MM-DD (defaults to today)")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: -user is required")
	}
	start, end := parseRangeFlags(log, *startDate, *endDate)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo := openRepository(ctx, log, cfg)
	defer repo.Close()

	state := &pipeline.PipelineState{UserID: *user, StartDate: start, EndDate: end, CreatedAt: time.Now()}
	report := pipeline.NewReportPipeline(pipeline.NewStoreIngestion(repo, log), pipeline.DailyTransformation{})
	if err := report.Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Fetch failed")
	}

	os.Stdout.Write(state.CSV)
	fmt.Fprintf(os.Stderr, "%d rows, %d days, total %s, daily average %s\n",
		len(state.Records), state.Summary.Days, expense.FormatAmount(state.Summary.Total), state.Summary.DailyAverage.StringFixed(2))
}

func runExport(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	user := fs.String("user", "", "Chat id (required)")
	startDate := fs.String("start-date", "", "Start date, YYYY-MM-DD (defaults to end date)")
	endDate := fs.String("end-date", "", "End date, YYYY-MM-DD (defaults to today)")
	bucket := fs.String("bucket", cfg.GCSBucket, "GCS bucket (or set GCS_BUCKET env)")
	fs.Parse(os.Args[2:])

	if *user == "" || *bucket == "" {
		log.Fatal().Msg("Usage: cli export -user ID -bucket NAME [-start-date D] [-end-date D]")
	}
	start, end := parseRangeFlags(log, *startDate, *endDate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo := openRepository(ctx, log, cfg)
	defer repo.Close()

	uploader, err := gcs.NewStorageUploader(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage uploader")
	}
	defer uploader.Close()

	state := &pipeline.PipelineState{UserID: *user, StartDate: start, EndDate: end, CreatedAt: time.Now()}
	export := pipeline.NewExportPipeline(pipeline.NewStoreIngestion(repo, log), pipeline.DailyTransformation{}, uploader, *bucket)
	if err := export.Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d rows to %s\n", len(state.Records), state.ObjectURI)
}

func runSetWebhook(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("set-webhook", flag.ExitOnError)
	webhookURL := fs.String("url", "", "Public HTTPS URL of the /webhook endpoint (required)")
	fs.Parse(os.Args[2:])

	if *webhookURL == "" {
		log.Fatal().Msg("Error: -url is required")
	}
	if cfg.BotToken == "" {
		log.Fatal().Msg("Error: CASH_SIM_BOT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := telegram.NewClient(cfg.BotToken, telegram.DefaultAPIBase, 10*time.Second)
	if err := client.SetWebhook(ctx, *webhookURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to set webhook")
	}

	fmt.Printf("Webhook set to %s\n", *webhookURL)
}

func runBQInit(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("bq-init", flag.ExitOnError)
	project := fs.String("project", cfg.GCPProject, "GCP project (or set GCP_PROJECT env)")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset")
	table := fs.String("table", cfg.BQTable, "BigQuery table")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: -project is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := bqstore.NewExpenseRepository(ctx, *project, *dataset, *table, cfg.StoreTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	created, err := repo.EnsureTable(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure table")
	}

	if created {
		fmt.Printf("Created table %s.%s\n", *dataset, *table)
	} else {
		fmt.Printf("Table %s.%s already exists\n", *dataset, *table)
	}
}
