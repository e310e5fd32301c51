// Package ingest turns Telegram updates into stored expense rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-sim/internal/config"
	"github.com/dvloznov/cashflow-sim/internal/expense"
	"github.com/dvloznov/cashflow-sim/internal/store"
	"github.com/dvloznov/cashflow-sim/internal/telegram"
)

// ReplyAccessDenied is sent to senders outside the allow-list.
const ReplyAccessDenied = "Access denied!"

// Service authorizes, parses, fingerprints and persists one update at a time.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	allow  config.AllowList
	writer store.Writer
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(allow config.AllowList, writer store.Writer, now func() time.Time, log zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		allow:  allow,
		writer: writer,
		now:    now,
		log:    log,
	}
}

// Handle processes one update and returns the reply for its chat.
// A nil reply with a nil error means the update carried nothing to answer.
// An error is returned only when the store could not be reached; no reply is
// produced in that case and nothing is retried.
func (s *Service) Handle(ctx context.Context, update telegram.Update) (*telegram.Reply, error) {
	msg := update.EffectiveMessage()
	if msg == nil {
		s.log.Debug().Int64("update_id", update.UpdateID).Msg("Update without message ignored")
		return nil, nil
	}

	chatID := msg.ChatID()
	log := s.log.With().Str("chat_id", chatID).Logger()

	if !s.allow.Allows(chatID) {
		log.Info().Msg("Sender not in allow-list")
		return telegram.NewReply(chatID, ReplyAccessDenied), nil
	}

	cmd, err := expense.ParseCommand(msg.Text)
	if err != nil {
		var rejection expense.Rejection
		if !errors.As(err, &rejection) {
			return nil, fmt.Errorf("Handle: parsing command: %w", err)
		}
		log.Debug().Str("text", msg.Text).Str("reason", rejection.Error()).Msg("Command rejected")
		return telegram.NewReply(chatID, rejection.Error()), nil
	}

	rec := expense.NewRecord(chatID, civil.DateOf(s.now()), cmd, expense.SourceTelegram)

	result, err := s.writer.UpsertExpense(ctx, &rec)
	if err != nil {
		log.Error().Err(err).Str("fingerprint", rec.Fingerprint).Msg("Store unreachable")
		return nil, fmt.Errorf("Handle: storing expense: %w", err)
	}

	if !result.Succeeded() {
		log.Warn().
			Int("status", result.Status).
			Str("body", result.Body).
			Str("fingerprint", rec.Fingerprint).
			Msg("Store rejected expense")
		return telegram.NewReply(chatID, InsertErrorText(result)), nil
	}

	log.Info().
		Int("status", result.Status).
		Int64("amount", rec.Amount).
		Str("category", string(rec.Category)).
		Str("fingerprint", rec.Fingerprint).
		Msg("Expense stored")

	return telegram.NewReply(chatID, rec.Confirmation()), nil
}

// InsertErrorText renders a store rejection for the sender.
func InsertErrorText(result store.WriteResult) string {
	return fmt.Sprintf("Insert error: %d %s", result.Status, result.Body)
}
