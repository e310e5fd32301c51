package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cashflow-sim/internal/config"
	"github.com/dvloznov/cashflow-sim/internal/infra"
	"github.com/dvloznov/cashflow-sim/internal/logger"
	"github.com/dvloznov/cashflow-sim/internal/notionsync"
	"github.com/dvloznov/cashflow-sim/internal/pipeline"
)

type syncOptions struct {
	userID      string
	start       civil.Date
	end         civil.Date
	notionToken string
	notionDBID  string
	dryRun      bool
}

// parseSyncFlags reads the command line; Notion credentials default to cfg.
func parseSyncFlags(args []string, cfg *config.Config) (syncOptions, error) {
	fs := flag.NewFlagSet("sync-notion", flag.ContinueOnError)
	userID := fs.String("user-id", "", "Chat id whose expenses are mirrored (required)")
	startDateStr := fs.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := fs.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := fs.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := fs.String("notion-db-id", cfg.NotionDBID, "Notion database ID (or set NOTION_DB_ID env)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	if err := fs.Parse(args); err != nil {
		return syncOptions{}, err
	}

	if *userID == "" {
		return syncOptions{}, errors.New("--user-id is required")
	}
	if *startDateStr == "" || *endDateStr == "" {
		return syncOptions{}, errors.New("--start-date and --end-date are required")
	}
	if *notionToken == "" {
		return syncOptions{}, errors.New("--notion-token is required")
	}
	if *notionDBID == "" {
		return syncOptions{}, errors.New("--notion-db-id is required")
	}

	start, end, err := pipeline.ParseRange(*startDateStr, *endDateStr)
	if err != nil {
		return syncOptions{}, fmt.Errorf("invalid date range: %w", err)
	}

	return syncOptions{
		userID:      *userID,
		start:       start,
		end:         end,
		notionToken: *notionToken,
		notionDBID:  *notionDBID,
		dryRun:      *dryRun,
	}, nil
}

func main() {
	log := logger.New(config.DefaultLogLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.New(cfg.LogLevel)

	opts, err := parseSyncFlags(os.Args[1:], cfg)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infra.NewRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize expense repository")
	}
	defer repo.Close()

	notionClient := notionsync.NewNotionClient(opts.notionToken)

	result, err := notionsync.SyncExpenses(ctx, pipeline.NewStoreIngestion(repo, log), notionClient, opts.notionDBID, opts.userID, opts.start, opts.end, opts.dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d already present, %d failed (of %d).\n",
		result.Created, result.Skipped, result.Failed, result.Total)
}
