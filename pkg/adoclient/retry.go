package adoclient

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/adomcp/bridge/pkg/adoerrors"
)

// doWithRetry runs op, retrying per spec §4.1: idempotent GETs retry on
// NETWORK/UPSTREAM/RATE_LIMIT up to retryMaxAttempts with exponential
// backoff (base/cap/jitter from Options); PATCH/POST/DELETE retry only on
// NETWORK. CONFLICT is never retried here — C6 owns the
// re-fetch-and-reapply retry for optimistic concurrency (spec §4.6 step 3).
func (c *Client) doWithRetry(ctx context.Context, op func(context.Context) error, idempotentGet bool) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBackoffBase
	policy.MaxInterval = c.retryBackoffCap
	policy.RandomizationFactor = c.retryJitter
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0 // bounded by MaxRetries below, not wall-clock

	withRetries := backoff.WithMaxRetries(policy, uint64(c.retryMaxAttempts-1))
	withContext := backoff.WithContext(withRetries, ctx)

	var lastErr error
	attempt := func() error {
		err := op(ctx)
		lastErr = err
		if err == nil {
			return nil
		}
		if !shouldRetry(err, idempotentGet) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(attempt, withContext); err != nil {
		if permanent, ok := err.(*backoff.PermanentError); ok {
			return permanent.Err
		}
		return lastErr
	}
	return nil
}

func shouldRetry(err error, idempotentGet bool) bool {
	cat := adoerrors.CategoryOf(err)
	if idempotentGet {
		return adoerrors.IsRetryable(cat)
	}
	return cat == adoerrors.Network
}
