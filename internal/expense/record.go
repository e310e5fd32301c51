package expense

import (
	"fmt"

	"cloud.google.com/go/civil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SourceTelegram tags records ingested through the Telegram webhook.
const SourceTelegram = "telegram"

// Record is one expense row as written to and read from the store.
// Field names double as store column names.
type Record struct {
	UserID      string     `json:"user_id"`
	Date        civil.Date `json:"date"`
	Amount      int64      `json:"amount"`
	Category    Category   `json:"category"`
	Mode        Mode       `json:"mode"`
	Note        string     `json:"note"`
	Source      string     `json:"source"`
	Fingerprint string     `json:"fingerprint"`
}

// NewRecord binds a parsed command to a sender and a calendar day and
// computes its fingerprint.
func NewRecord(userID string, date civil.Date, cmd Command, source string) Record {
	return Record{
		UserID:      userID,
		Date:        date,
		Amount:      cmd.Amount,
		Category:    cmd.Category,
		Mode:        cmd.Mode,
		Note:        cmd.Note,
		Source:      source,
		Fingerprint: Fingerprint(userID, date, cmd.Amount, cmd.Category, cmd.Mode, cmd.Note),
	}
}

// Confirmation renders the reply sent after a successful write,
// e.g. "OK: 25,000 · food · none · 2024-03-01".
func (r Record) Confirmation() string {
	return fmt.Sprintf("OK: %s · %s · %s · %s", FormatAmount(r.Amount), r.Category, r.Mode, r.Date)
}

// FormatAmount renders an amount with comma thousands separators.
func FormatAmount(amount int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", amount)
}
