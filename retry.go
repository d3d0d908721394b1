package stockledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultRetryTries is the attempt budget used when RetryOnConflict is given zero.
const DefaultRetryTries uint = 5

type attemptKey struct{}

// attemptFrom returns the retry attempt stored in ctx, or 1.
func attemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 1
}

// RetryOnConflict runs op until it succeeds, fails with an error other than a
// version conflict, or maxTries attempts have been made. Attempts are spaced
// with exponential backoff. Every other error is returned immediately.
//
//	res, err := stockledger.RetryOnConflict(ctx, 0, func(ctx context.Context) (*stockledger.Result, error) {
//	    return l.Reserve(ctx, m)
//	})
func RetryOnConflict[T any](ctx context.Context, maxTries uint, op func(ctx context.Context) (T, error)) (T, error) {
	if maxTries == 0 {
		maxTries = DefaultRetryTries
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(context.WithValue(ctx, attemptKey{}, attempt))
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
	)
}
