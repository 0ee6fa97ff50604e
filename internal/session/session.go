// Package session owns the connection lifecycle for a single transport: the
// state machine, automatic reconnection, credential wipe on revocation, and
// retry-wrapped sending.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/pkg/log"
)

// State is the cached lifecycle state of a session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Reconnect pacing and handshake wait defaults.
const (
	DefaultRecoverableDelay   = 3 * time.Second
	DefaultUnrecoverableDelay = 1 * time.Second
	DefaultConnectTimeout     = 2 * time.Minute
)

// Status is a point-in-time snapshot of the session. Connected and Ready
// reflect the transport's live login indicator, which wins over the cached
// state when the two disagree.
type Status struct {
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
	State     string `json:"state"`
	Challenge string `json:"challenge,omitempty"`
}

// Session drives one Transport through its lifecycle. All methods are safe
// for concurrent use.
type Session struct {
	transport ports.Transport
	policy    SendPolicy
	log       log.Logger

	recoverableDelay   time.Duration
	unrecoverableDelay time.Duration
	connectTimeout     time.Duration

	mu          sync.Mutex
	state       State
	challenge   string
	connectedCh chan struct{}
	closed      bool

	startOnce sync.Once
	done      chan struct{}
}

var _ ports.Sender = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l log.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithSendPolicy overrides the per-send retry policy.
func WithSendPolicy(p SendPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithReconnectDelays overrides the pause before reconnecting after a
// recoverable drop and after a credential revocation.
func WithReconnectDelays(recoverable, unrecoverable time.Duration) Option {
	return func(s *Session) {
		s.recoverableDelay = recoverable
		s.unrecoverableDelay = unrecoverable
	}
}

// WithConnectTimeout overrides how long Connect waits for the handshake to
// complete before returning control to the caller.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

// New creates a Session over t. The session is idle until Connect.
func New(t ports.Transport, opts ...Option) *Session {
	s := &Session{
		transport:          t,
		policy:             DefaultSendPolicy(),
		log:                log.NewNoopLogger(),
		recoverableDelay:   DefaultRecoverableDelay,
		unrecoverableDelay: DefaultUnrecoverableDelay,
		connectTimeout:     DefaultConnectTimeout,
		state:              StateDisconnected,
		connectedCh:        make(chan struct{}),
		done:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect starts the transport handshake and waits for it to complete. When
// the handshake is still pending after the connect timeout (a pairing
// challenge can sit unscanned indefinitely), Connect returns nil and the
// session keeps progressing in the background; poll Status for the result.
// If the session is already connecting or connected, Connect only waits.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	dial := s.state != StateConnecting
	if dial {
		s.state = StateConnecting
	}
	ch := s.connectedCh
	timeout := s.connectTimeout
	s.mu.Unlock()

	s.startOnce.Do(func() { go s.eventLoop() })

	if dial {
		if err := s.transport.Connect(ctx); err != nil {
			s.mu.Lock()
			s.state = StateError
			s.mu.Unlock()
			return err
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return nil
	case <-t.C:
		s.log.Warn("handshake still pending", log.Duration("waited", timeout))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return domain.ErrSessionClosed
	}
}

// Send submits one message with the session's retry policy. Fails fast with
// domain.ErrNotConnected when the transport has no live login, and never
// retries errors that cannot succeed on retry.
func (s *Session) Send(ctx context.Context, msg ports.Message) (ports.SendResult, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ports.SendResult{}, domain.ErrSessionClosed
	}
	if !s.transport.LoggedIn() {
		return ports.SendResult{}, domain.ErrNotConnected
	}

	var lastErr error
	for n := 1; n <= s.policy.Attempts; n++ {
		if n > 1 && s.policy.Backoff != nil {
			if err := sleep(ctx, s.policy.Backoff(n-1)); err != nil {
				return ports.SendResult{}, err
			}
		}
		res, err := s.transport.Send(ctx, msg)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if permanent(err) {
			break
		}
		s.log.Warn("send attempt failed",
			log.String("address", msg.Address),
			log.Int("attempt", n),
			log.Err(err))
	}
	return ports.SendResult{}, lastErr
}

// Status reports the current session state. The transport's live login
// indicator is authoritative: lifecycle notifications can race the
// transport's own readiness, so a live login reports connected regardless of
// the cached state.
func (s *Session) Status() Status {
	live := s.transport.LoggedIn()
	s.mu.Lock()
	st := s.state
	challenge := s.challenge
	s.mu.Unlock()

	if live {
		return Status{Connected: true, Ready: true, State: StateConnected.String()}
	}
	return Status{State: st.String(), Challenge: challenge}
}

// Challenge returns the pending pairing challenge, empty once connected.
func (s *Session) Challenge() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// Close stops the session and disconnects the transport. Credentials are
// kept so the next process start resumes the same identity.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	s.transport.Disconnect()
}

func (s *Session) eventLoop() {
	events := s.transport.Events()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev ports.TransportEvent) {
	switch ev.Kind {
	case ports.EventConnected:
		s.mu.Lock()
		if s.state != StateConnected {
			s.state = StateConnected
			s.challenge = ""
			close(s.connectedCh)
		}
		s.mu.Unlock()
		s.log.Info("session connected")

	case ports.EventChallenge:
		s.mu.Lock()
		s.challenge = ev.Challenge
		s.mu.Unlock()
		s.log.Info("pairing challenge received")

	case ports.EventDisconnected:
		s.markDown()
		s.log.Warn("connection dropped", log.Err(ev.Err))
		go s.reconnectAfter(s.recoverableDelay)

	case ports.EventLoggedOut:
		s.markDown()
		s.log.Warn("credentials revoked, wiping store", log.Err(ev.Err))
		if err := s.transport.ClearCredentials(); err != nil {
			s.log.Error("clear credentials", log.Err(err))
		}
		go s.reconnectAfter(s.unrecoverableDelay)
	}
}

// markDown moves the session back to disconnected ahead of the automatic
// reconnect. The connected channel is recreated only if it was consumed, so
// callers still waiting on the old handshake are released by the eventual
// reconnect.
func (s *Session) markDown() {
	s.mu.Lock()
	if s.state == StateConnected {
		s.connectedCh = make(chan struct{})
	}
	s.state = StateDisconnected
	s.mu.Unlock()
}

func (s *Session) reconnectAfter(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.done:
		return
	case <-t.C:
	}

	s.mu.Lock()
	if s.closed || s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()

	s.log.Info("reconnecting", log.Duration("after", d))
	if err := s.transport.Connect(context.Background()); err != nil {
		s.mu.Lock()
		s.state = StateError
		s.mu.Unlock()
		s.log.Error("reconnect failed", log.Err(err))
		go s.reconnectAfter(s.recoverableDelay)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
