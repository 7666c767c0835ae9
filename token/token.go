// Package token issues and validates assessment capability tokens: the
// unguessable, time-limited credentials that gate the anonymous candidate
// assessment flow. The token value is the sole secret; it never encodes the
// interview identity.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/talenthos/talenthos/errors"
)

// tokenBytes is the entropy of a token value. 32 bytes is double the
// 128-bit floor required for unguessability.
const tokenBytes = 32

// Token is an assessment access credential. At most one token is live per
// interview; issuing a new one replaces the old.
type Token struct {
	Value       string     `json:"value"`
	InterviewID string     `json:"interview_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`      // first candidate entry
	CompletedAt *time.Time `json:"completed_at,omitempty"` // assessment finished; token permanently inert
	CreatedAt   time.Time  `json:"created_at"`
}

// State is the outcome of validating a token value
type State string

const (
	StateValid            State = "valid"
	StateNotFound         State = "not_found"
	StateExpired          State = "expired"
	StateAlreadyCompleted State = "already_completed"
)

// newValue generates a URL-safe token value with tokenBytes of entropy
func newValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate token value")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// stateOf classifies a token at the given instant. Check order matters:
// completion before expiry, so an expired-but-completed token reports
// already-completed (the more informative outcome for the caller).
func stateOf(t *Token, now time.Time) State {
	if t.CompletedAt != nil {
		return StateAlreadyCompleted
	}
	if now.After(t.ExpiresAt) {
		return StateExpired
	}
	return StateValid
}
