package ports

import (
	"context"
	"time"
)

// Message is one outbound message handed to a sender.
type Message struct {
	// Address is the resolved transport address (JID for chat, mailbox for
	// email).
	Address string

	Body string

	// Subject is used by the mail sender only.
	Subject string

	// AttachmentPath, when set, points at a local file sent alongside the
	// body (image with caption for chat, attachment for email).
	AttachmentPath string
}

// SendResult carries the provider-assigned identity of a delivered message.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Sender is the dispatch-facing delivery contract. The connection session
// implements it for chat transports; the mail adapter implements it for SMTP.
// Implementations classify provider rejections using the domain error
// taxonomy (domain.ErrRecipientNotFound, domain.ErrNotConnected, ...).
type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// EventKind enumerates transport lifecycle notifications.
type EventKind int

const (
	// EventConnected signals a completed handshake.
	EventConnected EventKind = iota

	// EventDisconnected signals an unsolicited close whose credential
	// remains valid; the session reconnects after a short backoff.
	EventDisconnected

	// EventLoggedOut signals credential revocation. The session wipes the
	// credential store and starts a fresh pairing flow.
	EventLoggedOut

	// EventChallenge delivers a pairing challenge (e.g. a scannable code)
	// to present to the user during the handshake.
	EventChallenge
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventLoggedOut:
		return "logged-out"
	case EventChallenge:
		return "challenge"
	default:
		return "unknown"
	}
}

// TransportEvent is a lifecycle notification emitted by a Transport.
type TransportEvent struct {
	Kind EventKind

	// Challenge carries the pairing payload for EventChallenge.
	Challenge string

	// Err carries the close reason for EventDisconnected and EventLoggedOut.
	Err error
}

// Transport owns the wire connection and the persisted identity credential.
// Exactly one Transport backs a session; its notifications arrive
// asynchronously on Events relative to caller-initiated operations.
type Transport interface {
	// Connect opens the transport and begins the handshake. It returns once
	// the handshake is underway; completion is reported via Events. Connect
	// may be called again after a disconnect event. It fails only on
	// unrecoverable initialization errors (e.g. the credential store cannot
	// be opened).
	Connect(ctx context.Context) error

	// Disconnect closes the transport without invalidating credentials.
	Disconnect()

	// Events returns the lifecycle notification channel. The channel is
	// stable for the lifetime of the transport.
	Events() <-chan TransportEvent

	// Send submits one message over the open connection.
	Send(ctx context.Context, msg Message) (SendResult, error)

	// LoggedIn reports the transport's own live view of whether an
	// authenticated identity is present. This is authoritative over any
	// cached session state: connection notifications can race the
	// transport's readiness.
	LoggedIn() bool

	// ClearCredentials deletes the persisted identity wholesale so the next
	// Connect starts a fresh pairing flow.
	ClearCredentials() error
}
