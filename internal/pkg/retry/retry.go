package retry

import (
	"math/rand"
	"time"
)

// Backoff is a bounded exponential backoff with jitter. The sleep function
// is injectable so callers can test retry loops without real delays.
type Backoff struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
	Jitter      time.Duration
	Sleep       func(time.Duration)
}

// Delay returns the wait before retry number attempt (1-based): Base doubled
// per attempt, capped, plus a random jitter to de-correlate colliding
// clients.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base << (attempt - 1)
	if b.Cap > 0 && d > b.Cap {
		d = b.Cap
	}
	if b.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	return d
}

// Wait sleeps for Delay(attempt) using the injected sleep function, falling
// back to time.Sleep.
func (b Backoff) Wait(attempt int) {
	sleep := b.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(b.Delay(attempt))
}
