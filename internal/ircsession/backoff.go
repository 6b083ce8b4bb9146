package ircsession

import "time"

// Backoff computes a bounded exponential reconnect delay: initial 10s,
// factor 1.5, capped at 120s, deliberately without jitter
// (spec.md §3). This deviates from stages/websocket.go's jittered
// min(60, try*try)+rand.Intn(try+1) scheme because spec.md names
// exact parameters the bot must honor.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	factor  float64
}

// NewBackoff returns the spec-mandated backoff schedule.
func NewBackoff() Backoff {
	return Backoff{initial: 10 * time.Second, max: 120 * time.Second, factor: 1.5}
}

// Delay returns the wait before reconnect attempt number try (0-based:
// try==0 is the first retry after the initial failed connection).
func (b Backoff) Delay(try int) time.Duration {
	d := float64(b.initial)
	for i := 0; i < try; i++ {
		d *= b.factor
	}
	if time.Duration(d) > b.max {
		return b.max
	}
	return time.Duration(d)
}
