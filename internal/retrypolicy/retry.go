// Package retrypolicy wraps an operation with exponential backoff,
// skipping retries entirely for error Kinds the taxonomy marks
// non-retryable (spec §4.8).
package retrypolicy

import (
	"context"
	"time"

	"fileloader/internal/fileerrors"
	"fileloader/internal/logging"
)

// Policy is the exponential backoff schedule every retryable pipeline
// operation shares (spec §4.8).
type Policy struct {
	Attempts         int
	InitialDelay     time.Duration
	BackoffMultiplier float64
}

// Default is the run-wide retry policy spec §4.8 declares.
var Default = Policy{
	Attempts:          3,
	InitialDelay:      250 * time.Millisecond,
	BackoffMultiplier: 2.0,
}

// Do runs op, retrying on failure per p unless the error's fileerrors.Kind
// is non-retryable, in which case it returns immediately.
func (p Policy) Do(ctx context.Context, opName string, op func(ctx context.Context) error) error {
	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		kind := fileerrors.KindOf(err)
		if !kind.Retryable() {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		logging.For(logging.Fields{"op": opName, "attempt": attempt, "kind": kind}).Warn("retrying after failure")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.BackoffMultiplier)
	}

	return lastErr
}
