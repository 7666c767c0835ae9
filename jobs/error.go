package jobs

import (
	"github.com/talenthos/talenthos/errors"
)

// ErrPermanent marks handler errors that must not be retried. Jobs failing
// with a marked error dead-letter immediately regardless of remaining
// attempts: bad credentials, structurally invalid input, and upstream logic
// errors (e.g. an evaluation job for an interview that never completed).
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the worker pool skips remaining retries
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPermanent)
}

// IsPermanent reports whether err is marked permanent
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
