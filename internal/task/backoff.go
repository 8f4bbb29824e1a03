package task

import (
	"math/rand"
	"time"
)

const maxBackoff = 10 * time.Minute

// Backoff returns the delay before the next retry of a transient failure,
// growing exponentially with the attempt count, with jitter, capped at ten
// minutes.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 20 {
		attempt = 20
	}

	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}

	// up to 50% jitter to spread retries out
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}
