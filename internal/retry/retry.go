// Package retry runs an operation with exponential backoff. Whether an error
// is worth another attempt is decided by bojerr.ShouldRetry.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/explorrrr/boj-client/internal/bojerr"
)

// Policy bounds retries. MaxRetries counts retries, not attempts: a policy
// with MaxRetries 2 makes at most 3 attempts.
type Policy struct {
	MaxRetries     uint32
	InitialBackoff time.Duration

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt uint32, delay time.Duration, err error)
}

// Delay returns the wait before retry n (0-indexed): InitialBackoff * 2^n,
// saturating at the largest time.Duration.
func (p Policy) Delay(n uint32) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	if n >= 63 {
		return time.Duration(math.MaxInt64)
	}
	factor := int64(1) << n
	if int64(p.InitialBackoff) > math.MaxInt64/factor {
		return time.Duration(math.MaxInt64)
	}
	return p.InitialBackoff * time.Duration(factor)
}

// Do runs op until it succeeds, returns a non-retryable error, or the retry
// budget is spent. The last failure is returned. A cancelled ctx ends the
// wait early and the last failure is returned wrapped with ctx.Err().
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var n uint32
	for {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if n >= p.MaxRetries || !bojerr.ShouldRetry(err) {
			return v, err
		}
		delay := p.Delay(n)
		if p.OnRetry != nil {
			p.OnRetry(n+1, delay, err)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			var zero T
			return zero, fmt.Errorf("retry abandoned: %w: %w", ctx.Err(), err)
		case <-t.C:
		}
		n++
	}
}
