package expense

import (
	"strconv"
	"strings"
)

// Rejection is a parse failure whose text is shown to the sender as-is.
type Rejection string

func (r Rejection) Error() string {
	return string(r)
}

// Rejections returned by ParseCommand. Only the first failing rule is reported.
const (
	ErrUsage         Rejection = "Use: /add <amount> <category> <mode> [note]"
	ErrInvalidAmount Rejection = "Invalid amount. Please enter a valid number."
	ErrInvalidInput  Rejection = "Invalid input. Please check the amount, category, and mode."
)

const addCommand = "/add"

// Command is a validated /add command, not yet bound to a sender or a date.
type Command struct {
	Amount   int64
	Category Category
	Mode     Mode
	Note     string
}

// ParseCommand parses "/add <amount> <category> <mode> [note]".
// It is total: every input yields either a Command or one of the Rejection values.
func ParseCommand(text string) (Command, error) {
	parts := strings.Fields(text)
	if len(parts) < 4 || strings.ToLower(parts[0]) != addCommand {
		return Command{}, ErrUsage
	}

	// Sign is checked below together with category and mode.
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Command{}, ErrInvalidAmount
	}

	category := Category(strings.ToLower(parts[2]))
	mode := Mode(strings.ToLower(parts[3]))
	note := strings.Join(parts[4:], " ")

	if amount < 0 || !category.Valid() || !mode.Valid() {
		return Command{}, ErrInvalidInput
	}

	return Command{
		Amount:   amount,
		Category: category,
		Mode:     mode,
		Note:     note,
	}, nil
}
