package rpcclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v3"
)

// ErrContention is returned from Update when the counter kept changing until the back-off gave up.
var ErrContention = errors.New("counter changed concurrently")

// UpdateBackOff returns the back-off policy used between attempts of Update.
var UpdateBackOff = func() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = 30 * time.Second
	return bo
}

// Update reads the counter and adds the step returned from fn with AtomicIncr.
// If another writer changed the counter in between, fn is called again with the value seen by the server.
// Connection errors are retried only if the request was not written to the server.
// Once written, the server may have applied the step, so the error is returned
// instead of risking to apply it twice.
func (c *Client) Update(ctx context.Context, fn func(cur int64) (step int64)) (int64, error) {
	cur, err := c.Get(ctx)
	if err != nil {
		return 0, err
	}
	bo := UpdateBackOff()
	bo.Reset()
	var result int64
	operation := func() error {
		resp, err := c.AtomicIncr(ctx, cur, fn(cur))
		if err != nil {
			var cerr *ConnectionError
			if errors.As(err, &cerr) && !cerr.Sent {
				return err
			}
			return backoff.Permanent(err)
		}
		if !resp.Success {
			cur = resp.Cur
			return ErrContention
		}
		result = resp.Cur
		return nil
	}
	err = backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if err != nil && ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return result, err
}
