package csv2hyper

import "time"

// ErrorClassifier decides whether a failure is worth another attempt.
type ErrorClassifier interface {
	IsTransient(err error) bool
}

// BackoffStrategy calculates the delay before the next retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the wait before retry number attempt (zero-indexed).
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the retry cap (0 = no retries, -1 = unlimited).
	MaxAttempts() int
}
