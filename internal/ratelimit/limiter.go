// Package ratelimit throttles per-user message bursts so a single chat cannot
// monopolize the upstream quote API.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result captures the outcome of a throttle evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter describes a per-user throttling strategy.
type Limiter interface {
	Check(ctx context.Context, userID int64, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the user has hit their message budget.
var ErrLimitExceeded = errors.New("rate limit exceeded")
