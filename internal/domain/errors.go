package domain

import "errors"

// Domain errors represent error conditions surfaced by the public API.
// They can be checked with errors.Is.
var (
	// ErrNotConnected is returned by Send when the session is not in the
	// Connected state. Callers should retry after the session reconnects.
	ErrNotConnected = errors.New("outflow: not connected")

	// ErrInvalidAddress is returned when a raw address cannot be normalized
	// into a transport address. Never retried.
	ErrInvalidAddress = errors.New("outflow: invalid address format")

	// ErrRecipientNotFound is returned when the remote provider reports the
	// address is not provisioned on the target network. Never retried.
	ErrRecipientNotFound = errors.New("outflow: recipient not registered on network")

	// ErrCredentialRevoked indicates the persisted identity was invalidated
	// remotely. The session wipes its credential store and starts a fresh
	// pairing flow; dispatch callers never see this as a per-message error.
	ErrCredentialRevoked = errors.New("outflow: credential revoked")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session after Close.
	ErrSessionClosed = errors.New("outflow: session closed")

	// ErrRunInProgress is returned when a dispatch run is requested while
	// another run holds the session.
	ErrRunInProgress = errors.New("outflow: dispatch run already in progress")
)
