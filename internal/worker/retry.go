package worker

import (
	"math"
	"time"

	"viagens/internal/config"
)

const defaultBackoff = time.Second

// RetryPolicy spaces out redelivery of failed outbox tasks.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// PolicyFromConfig reads the outbox retry settings.
func PolicyFromConfig(cfg config.OutboxConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: cfg.BackoffFactor,
	}
}

// Exhausted reports whether a task failing for the attempt-th time belongs
// in the dead letter.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// Backoff is the wait before attempt (1-based): InitialDelay grown by
// BackoffFactor per attempt, capped at MaxDelay.
func (r RetryPolicy) Backoff(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = defaultBackoff
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}
	n := max(attempt, 1) - 1

	d := time.Duration(float64(base) * math.Pow(factor, float64(n)))
	switch {
	case d <= 0:
		d = defaultBackoff
	case r.MaxDelay > 0 && d > r.MaxDelay:
		d = r.MaxDelay
	}
	return d
}

// NextRun is when a task that failed at now on attempt should be picked up again.
func (r RetryPolicy) NextRun(now time.Time, attempt int) time.Time {
	return now.Add(r.Backoff(attempt))
}
