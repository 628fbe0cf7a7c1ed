package worker

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/paymentdispatch/intermediary/internal/config"
)

// delayForAttempt computes the requeue delay for a Transient outcome,
// spec.md §4.5: "exponential with jitter, floor 50 ms, cap 2 s". attempt is
// the entry's post-increment attempt count (1 on the first retry).
func delayForAttempt(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.BackoffFloor
	b.MaxInterval = config.BackoffCap
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay <= 0 || delay > config.BackoffCap {
		delay = config.BackoffCap
	}
	if delay < config.BackoffFloor {
		delay = config.BackoffFloor
	}
	return delay
}
