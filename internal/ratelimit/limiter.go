// Package ratelimit implements fixed-window request limits keyed by caller.
package ratelimit

import (
	"context"
	"time"
)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(limit, count int, windowLeft time.Duration) Decision {
	d := Decision{Limit: limit, Allowed: count <= limit}

	if remaining := limit - count; remaining > 0 {
		d.Remaining = remaining
	}
	if !d.Allowed {
		d.RetryAfter = windowLeft
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d
}
