package expense

import (
	"errors"
	"testing"
)

func TestParseCommand_Valid(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
	}{
		{
			name: "with note",
			text: "/add 25000 food none lunch",
			want: Command{Amount: 25000, Category: CategoryFood, Mode: ModeNone, Note: "lunch"},
		},
		{
			name: "without note",
			text: "/add 15000 transport motorcycle",
			want: Command{Amount: 15000, Category: CategoryTransport, Mode: ModeMotorcycle, Note: ""},
		},
		{
			name: "mixed case command category and mode",
			text: "/ADD 100 Bill CAR",
			want: Command{Amount: 100, Category: CategoryBill, Mode: ModeCar},
		},
		{
			name: "multi word note collapses whitespace",
			text: "  /add 0 misc none   coffee \t with   friends  ",
			want: Command{Amount: 0, Category: CategoryMisc, Mode: ModeNone, Note: "coffee with friends"},
		},
		{
			name: "explicit plus sign",
			text: "/add +42 food car",
			want: Command{Amount: 42, Category: CategoryFood, Mode: ModeCar},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.text)
			if err != nil {
				t.Fatalf("ParseCommand(%q) unexpected error: %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseCommand_Rejections(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "empty", text: "", want: ErrUsage},
		{name: "whitespace only", text: "   \n\t", want: ErrUsage},
		{name: "too few tokens", text: "/add 100 food", want: ErrUsage},
		{name: "other command", text: "/sum 100 food none", want: ErrUsage},
		{name: "command prefix only", text: "/added 100 food none", want: ErrUsage},
		{name: "plain text", text: "hello there how are you", want: ErrUsage},
		{name: "non numeric amount", text: "/add abc food none", want: ErrInvalidAmount},
		{name: "decimal amount", text: "/add 10.5 food none", want: ErrInvalidAmount},
		{name: "overflowing amount", text: "/add 99999999999999999999 food none", want: ErrInvalidAmount},
		{name: "amount checked before category", text: "/add x pets none", want: ErrInvalidAmount},
		{name: "negative amount", text: "/add -10 food none", want: ErrInvalidInput},
		{name: "unknown category", text: "/add 10 pets none", want: ErrInvalidInput},
		{name: "unknown mode", text: "/add 10 food bicycle", want: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.text)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseCommand(%q) error = %v, want %v", tt.text, err, tt.want)
			}
			if got != (Command{}) {
				t.Errorf("ParseCommand(%q) returned command %+v alongside error", tt.text, got)
			}
		})
	}
}

func TestRejection_Messages(t *testing.T) {
	if ErrUsage.Error() != "Use: /add <amount> <category> <mode> [note]" {
		t.Errorf("unexpected usage text: %q", ErrUsage.Error())
	}
	if ErrInvalidInput.Error() != "Invalid input. Please check the amount, category, and mode." {
		t.Errorf("unexpected validation text: %q", ErrInvalidInput.Error())
	}
}
