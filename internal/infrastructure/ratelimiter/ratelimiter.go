package ratelimiter

import "time"

// Limiter gates requests per source key (usually the remote address).
// Allow reports whether the request may proceed and, when it may not,
// how long until the window resets.
type Limiter interface {
	Allow(source string) (bool, time.Duration)
	Close()
}
