package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix marks push session identifiers in logs.
const SessionIDPrefix = "tlps-"

// NewSessionID returns a sortable identifier for one push session.
// Format: tlps-{ulid_lowercase}.
func NewSessionID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		// Only possible for timestamps beyond the year 10889.
		id = ulid.ULID{}
	}
	return SessionIDPrefix + strings.ToLower(id.String())
}

// SessionTime extracts the creation time encoded in a session ID.
func SessionTime(id string) (time.Time, bool) {
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return time.Time{}, false
	}
	parsed, err := ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(id, SessionIDPrefix)))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
