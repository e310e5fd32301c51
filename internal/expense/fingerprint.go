package expense

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

const fingerprintSeparator = "|"

// Fingerprint returns the hex SHA-256 digest identifying one logical expense event.
//
// An empty note is hashed as a single space, so "no note" and a one-space note
// collide. Stored rows depend on this normalization; do not change it.
func Fingerprint(userID string, date civil.Date, amount int64, category Category, mode Mode, note string) string {
	if note == "" {
		note = " "
	}

	payload := strings.Join([]string{
		userID,
		date.String(),
		strconv.FormatInt(amount, 10),
		string(category),
		string(mode),
		note,
	}, fingerprintSeparator)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
