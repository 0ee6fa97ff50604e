package session

import (
	"errors"
	"time"

	"github.com/outflow-sh/outflow/internal/domain"
)

// SendPolicy bounds how often a single send is retried before the error is
// surfaced to the caller.
type SendPolicy struct {
	// Attempts is the total attempt budget including the first try.
	Attempts int

	// Backoff returns the pause before retry number n (n starts at 1).
	// Nil means no pause.
	Backoff func(n int) time.Duration
}

// SingleAttempt disables retries.
func SingleAttempt() SendPolicy {
	return SendPolicy{Attempts: 1}
}

// ProgressiveBackoff retries up to attempts times, pausing step*n before
// retry n.
func ProgressiveBackoff(attempts int, step time.Duration) SendPolicy {
	return SendPolicy{
		Attempts: attempts,
		Backoff: func(n int) time.Duration {
			return time.Duration(n) * step
		},
	}
}

// DefaultSendPolicy is the standard chat-transport policy: five attempts
// with a 2s, 4s, 6s, 8s progressive pause.
func DefaultSendPolicy() SendPolicy {
	return ProgressiveBackoff(5, 2*time.Second)
}

// permanent reports whether err can never succeed on retry: malformed or
// unprovisioned addresses, and sends attempted without a connection.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidAddress) ||
		errors.Is(err, domain.ErrRecipientNotFound) ||
		errors.Is(err, domain.ErrNotConnected)
}
