package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var errNoHealthyCandidate = errors.New("ningún endpoint respondió")

// healthCandidates are probed in order; the first 2xx wins.
var healthCandidates = []string{"/health", "/api/caja?solo_caja=true", "/"}

// Ping reports whether the accounting backend answers within timeout. Each
// probe goes straight to the apiBase (or origin) with no retry or fallback.
// While the breaker is open Ping fails fast.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) bool {
	c.LoadConfig(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	root := c.APIBase()
	if root == "" {
		root = c.origin
	}
	err := c.breaker.Execute(func() error {
		for _, p := range healthCandidates {
			resp, err := c.roundTrip(ctx, http.MethodGet, root+p, nil, http.Header{"Cache-Control": {"no-cache"}})
			if err == nil && resp.OK() {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		return errNoHealthyCandidate
	})
	return err == nil
}

// Retry resets the breaker and probes again.
func (c *Client) Retry(ctx context.Context, timeout time.Duration) bool {
	c.breaker.Reset()
	return c.Ping(ctx, timeout)
}

// BreakerState exposes the health breaker state for status output.
func (c *Client) BreakerState() CBState { return c.breaker.State() }
