package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no value is stored, or the stored value expired.
	ErrNotFound = errors.New("store: not found")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// TTL convention shared by every store: a positive ttl is the value's
// lifetime, zero means no expiry, and a negative ttl means the value is
// already dead. Saving a dead credential drops the stored credential and
// profile; saving a dead profile drops the profile.

// expiry converts a TTL into an absolute deadline. Zero means no expiry.
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
