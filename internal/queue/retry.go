// Package queue implements the polling scheduler, job executor, and retry
// policy for the analysis job queue.
package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/civitas-io/mediawatch/internal/engine"
)

// retryableSignatures are message fragments that mark a failure as
// transient: rate limiting, timeouts, connection churn, and the engine's
// 429/5xx family. Everything else is fatal.
var retryableSignatures = []string{
	"rate limit",
	"too many requests",
	"status code: 429",
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 504",
	"bad gateway",
	"service unavailable",
	"internal server error",
}

// IsRetryable classifies an execution error as transient or fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, engine.ErrNoContent) || errors.Is(err, engine.ErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range retryableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Decision is the retry policy's verdict for one failed attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide applies the retry policy to a failed execution. attempts is the
// job's attempt count before this execution; the delay for a retry is
// baseDelay * 2^attempts. A fatal error or exhausted attempts yields a
// terminal decision regardless of classification.
func Decide(err error, attempts, maxAttempts int, baseDelay time.Duration) Decision {
	if !IsRetryable(err) {
		return Decision{}
	}
	if attempts+1 >= maxAttempts {
		return Decision{}
	}
	return Decision{Retry: true, Delay: baseDelay * (1 << attempts)}
}
