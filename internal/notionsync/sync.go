// Package notionsync mirrors stored expenses into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/cashflow-sim/internal/logger"
	"github.com/dvloznov/cashflow-sim/internal/pipeline"
)

// Result counts what a sync did (or would do in a dry run).
type Result struct {
	Total   int
	Created int
	Skipped int
	Failed  int
}

// SyncExpenses creates a Notion page for every expense of userID between
// start and end whose fingerprint is not yet in the database. Existing pages
// are never modified. Individual page failures are logged and counted.
func SyncExpenses(ctx context.Context, source pipeline.DataIngestion, notionClient NotionService, notionDBID, userID string, start, end civil.Date, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("user_id", userID).
		Str("start_date", start.String()).
		Str("end_date", end.String()).
		Bool("dry_run", dryRun).
		Msg("Starting expenses sync to Notion")

	records, err := source.FetchRange(ctx, userID, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("SyncExpenses: fetching expenses: %w", err)
	}

	log.Info().Int("expense_count", len(records)).Msg("Retrieved expenses from store")

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return Result{}, fmt.Errorf("SyncExpenses: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]bool, len(notionPages))
	for _, page := range notionPages {
		if fp := extractFingerprint(page); fp != "" {
			existing[fp] = true
		}
	}

	result := Result{Total: len(records)}
	for i := range records {
		rec := &records[i]

		if existing[rec.Fingerprint] {
			result.Skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("fingerprint", rec.Fingerprint).
				Str("date", rec.Date.String()).
				Int64("amount", rec.Amount).
				Msg("[DRY RUN] Would create Notion page for expense")
			result.Created++
			continue
		}

		page, err := notionClient.CreatePage(ctx, notionDBID, ExpenseToNotionProperties(rec))
		if err != nil {
			log.Warn().
				Err(err).
				Str("fingerprint", rec.Fingerprint).
				Msg("Failed to create Notion page for expense")
			result.Failed++
			continue
		}

		// Two rows with the same fingerprint in one batch are mirrored once.
		existing[rec.Fingerprint] = true

		log.Debug().
			Str("fingerprint", rec.Fingerprint).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page for expense")
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("total", result.Total).
		Msg("Expenses sync completed")

	return result, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
