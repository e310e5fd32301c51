package expense

import (
	"regexp"
	"testing"

	"cloud.google.com/go/civil"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestFingerprint_KnownValues(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 3, Day: 1}

	tests := []struct {
		name string
		note string
		want string
	}{
		{
			name: "with note",
			note: "lunch",
			want: "821a49341c415b9fcbe9c7477fdafcab4c98ddf4ec0fe2ccf18249d951e9c650",
		},
		{
			name: "empty note hashes as a single space",
			note: "",
			want: "003a66c9fc3525fa2b7c70924f41dda844403726dcd9f002a70712c346bb15ed",
		},
		{
			name: "single space note collides with empty note",
			note: " ",
			want: "003a66c9fc3525fa2b7c70924f41dda844403726dcd9f002a70712c346bb15ed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint("123", date, 25000, CategoryFood, ModeNone, tt.note)
			if got != tt.want {
				t.Errorf("Fingerprint() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 3, Day: 1}
	first := Fingerprint("42", date, 1000, CategoryBill, ModeCar, "electricity")
	second := Fingerprint("42", date, 1000, CategoryBill, ModeCar, "electricity")

	if first != second {
		t.Fatalf("Fingerprint is not deterministic: %s != %s", first, second)
	}
	if !hexDigest.MatchString(first) {
		t.Errorf("Fingerprint %q is not 64 lowercase hex characters", first)
	}
}

func TestFingerprint_EachFieldMatters(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 3, Day: 1}
	base := Fingerprint("42", date, 1000, CategoryFood, ModeNone, "lunch")

	variants := map[string]string{
		"user":     Fingerprint("43", date, 1000, CategoryFood, ModeNone, "lunch"),
		"date":     Fingerprint("42", date.AddDays(1), 1000, CategoryFood, ModeNone, "lunch"),
		"amount":   Fingerprint("42", date, 1001, CategoryFood, ModeNone, "lunch"),
		"category": Fingerprint("42", date, 1000, CategoryMisc, ModeNone, "lunch"),
		"mode":     Fingerprint("42", date, 1000, CategoryFood, ModeCar, "lunch"),
		"note":     Fingerprint("42", date, 1000, CategoryFood, ModeNone, "dinner"),
	}

	for field, fp := range variants {
		if fp == base {
			t.Errorf("changing %s did not change the fingerprint", field)
		}
	}
}
