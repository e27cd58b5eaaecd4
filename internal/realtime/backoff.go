package realtime

import (
	"math/rand"
	"time"
)

// Backoff produces capped exponential reconnect delays with jitter.
// A fixed retry interval synchronizes reconnect storms across clients
// during a server outage; the jitter spreads them out.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	attempt int
}

// Next returns the delay before the next connection attempt.
func (b *Backoff) Next() time.Duration {
	d := b.Min << b.attempt
	if d <= 0 || d > b.Max {
		d = b.Max
	} else {
		b.attempt++
	}
	// Jitter into [d/2, d).
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Reset restores the initial delay after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
}
