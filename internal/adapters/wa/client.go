// Package wa is the WhatsApp transport adapter. It wraps whatsmeow behind
// the Transport port: device credentials live in a sqlite store under the
// state directory, pairing QR codes surface as challenge events, and the
// connection lifecycle maps onto the session's event vocabulary.
package wa

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"

	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/pkg/log"
)

const sessionDBName = "session.db"

var _ ports.Transport = (*Client)(nil)

// Client implements ports.Transport over whatsmeow.
type Client struct {
	storeDir string
	log      log.Logger
	events   chan ports.TransportEvent

	mu        sync.Mutex
	container *sqlstore.Container
	cli       *whatsmeow.Client
	qrCancel  context.CancelFunc
}

// NewClient creates the adapter. Nothing touches the store until Connect.
func NewClient(storeDir string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Client{
		storeDir: storeDir,
		log:      logger,
		events:   make(chan ports.TransportEvent, 16),
	}
}

// Connect opens the credential store, builds the whatsmeow client if needed,
// and starts the handshake. When no device identity exists yet the QR
// pairing flow starts and codes arrive as challenge events.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli == nil {
		if err := c.initClientLocked(); err != nil {
			return err
		}
	}

	if c.cli.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		qrChan, err := c.cli.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("wa: qr channel: %w", err)
		}
		c.qrCancel = cancel
		go c.pumpQR(qrChan)
	}

	if err := c.cli.Connect(); err != nil {
		return fmt.Errorf("wa: connect: %w", err)
	}
	return nil
}

func (c *Client) initClientLocked() error {
	if err := os.MkdirAll(c.storeDir, 0o755); err != nil {
		return fmt.Errorf("wa: create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(c.storeDir, sessionDBName))
	container, err := sqlstore.New("sqlite3", dsn, newLogBridge(c.log, "store"))
	if err != nil {
		return fmt.Errorf("wa: open credential store: %w", err)
	}
	device, err := container.GetFirstDevice()
	if err != nil {
		_ = container.Close()
		return fmt.Errorf("wa: load device: %w", err)
	}

	cli := whatsmeow.NewClient(device, newLogBridge(c.log, "client"))
	// The session layer owns reconnection policy.
	cli.EnableAutoReconnect = false
	cli.AddEventHandler(c.handleWAEvent)

	c.container = container
	c.cli = cli
	return nil
}

func (c *Client) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.emit(ports.TransportEvent{Kind: ports.EventChallenge, Challenge: item.Code})
		case "timeout":
			c.log.Warn("qr pairing timed out")
		default:
			c.log.Debug("qr channel event", log.String("event", item.Event))
		}
	}
}

func (c *Client) handleWAEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		c.emit(ports.TransportEvent{Kind: ports.EventConnected})
	case *events.Disconnected:
		c.emit(ports.TransportEvent{Kind: ports.EventDisconnected})
	case *events.StreamReplaced:
		c.emit(ports.TransportEvent{
			Kind: ports.EventDisconnected,
			Err:  fmt.Errorf("wa: stream replaced by another session"),
		})
	case *events.LoggedOut:
		c.emit(ports.TransportEvent{
			Kind: ports.EventLoggedOut,
			Err:  fmt.Errorf("%w: reason %s", domain.ErrCredentialRevoked, e.Reason),
		})
	}
}

// emit never blocks the whatsmeow event goroutine; if the consumer lags, the
// notification is dropped and the next lifecycle event resynchronizes.
func (c *Client) emit(ev ports.TransportEvent) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event channel full, dropping", log.String("kind", ev.Kind.String()))
	}
}

func (c *Client) Events() <-chan ports.TransportEvent { return c.events }

// Disconnect closes the socket and stops any pending QR flow. Credentials
// are untouched.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.qrCancel != nil {
		c.qrCancel()
		c.qrCancel = nil
	}
	if c.cli != nil {
		c.cli.Disconnect()
	}
}

// LoggedIn reports whether a paired device identity is present and the
// socket is up. This is the live indicator the session trusts over its own
// cached state.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	cli := c.cli
	c.mu.Unlock()
	return cli != nil && cli.Store.ID != nil && cli.IsConnected()
}

// Send delivers one message. The recipient is verified against the network
// first so unprovisioned numbers fail with domain.ErrRecipientNotFound
// instead of vanishing into the void.
func (c *Client) Send(ctx context.Context, msg ports.Message) (ports.SendResult, error) {
	c.mu.Lock()
	cli := c.cli
	c.mu.Unlock()
	if cli == nil || !cli.IsConnected() {
		return ports.SendResult{}, domain.ErrNotConnected
	}

	jid, err := types.ParseJID(msg.Address)
	if err != nil {
		return ports.SendResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, msg.Address)
	}

	if err := c.checkRegistered(cli, jid); err != nil {
		return ports.SendResult{}, err
	}

	var message *waE2E.Message
	if msg.AttachmentPath != "" {
		message, err = c.buildImageMessage(ctx, cli, msg)
		if err != nil {
			return ports.SendResult{}, err
		}
	} else {
		message = &waE2E.Message{Conversation: proto.String(msg.Body)}
	}

	resp, err := cli.SendMessage(ctx, jid, message)
	if err != nil {
		return ports.SendResult{}, fmt.Errorf("wa: send to %s: %w", jid, err)
	}
	return ports.SendResult{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) checkRegistered(cli *whatsmeow.Client, jid types.JID) error {
	resp, err := cli.IsOnWhatsApp([]string{"+" + jid.User})
	if err != nil {
		// The lookup is advisory; let the send itself decide.
		c.log.Debug("registration lookup failed", log.Err(err))
		return nil
	}
	if len(resp) > 0 && !resp[0].IsIn {
		return fmt.Errorf("%w: %s", domain.ErrRecipientNotFound, jid.User)
	}
	return nil
}

func (c *Client) buildImageMessage(ctx context.Context, cli *whatsmeow.Client, msg ports.Message) (*waE2E.Message, error) {
	data, err := os.ReadFile(msg.AttachmentPath)
	if err != nil {
		return nil, fmt.Errorf("wa: read attachment: %w", err)
	}
	uploaded, err := cli.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return nil, fmt.Errorf("wa: upload attachment: %w", err)
	}
	return &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(msg.Body),
			Mimetype:      proto.String(http.DetectContentType(data)),
			URL:           &uploaded.URL,
			DirectPath:    &uploaded.DirectPath,
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    &uploaded.FileLength,
		},
	}, nil
}

// ClearCredentials tears the client down and deletes the credential store
// wholesale so the next Connect starts a fresh pairing flow.
func (c *Client) ClearCredentials() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.qrCancel != nil {
		c.qrCancel()
		c.qrCancel = nil
	}
	if c.cli != nil {
		c.cli.Disconnect()
		c.cli = nil
	}
	if c.container != nil {
		_ = c.container.Close()
		c.container = nil
	}

	entries, err := os.ReadDir(c.storeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("wa: read store dir: %w", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), sessionDBName) {
			if err := os.Remove(filepath.Join(c.storeDir, e.Name())); err != nil {
				return fmt.Errorf("wa: remove %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}
