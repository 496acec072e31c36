package ratelimiter

import (
	"context"
	"time"

	"github.com/lowc1012/nanothrottler/throttler"
)

type Request struct {
	Key string
}

type State uint32

const (
	Deny State = iota
	Allow
)

func (s State) String() string {
	if s == Allow {
		return "Allow"
	}
	return "Deny"
}

type Result struct {
	State State
	// RequestLimit is the number of requests admitted per Period.
	RequestLimit uint32
	Period       time.Duration
	// Waited is how long the request was held before the decision.
	Waited time.Duration
}

// RateLimiter defines the interface for a blocking rate limiter. Run holds the
// caller until the request is admitted and returns Allow, or returns Deny when
// the request cannot be admitted before ctx ends.
type RateLimiter interface {
	Run(ctx context.Context, req *Request) (*Result, error)
	Type() throttler.Kind
}
