// Package mail is the SMTP delivery adapter. It implements the sender port
// directly; mail has no connection lifecycle to manage, so it bypasses the
// session layer entirely.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/pkg/log"
)

// Config holds SMTP submission settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the envelope and header sender. Defaults to Username.
	From string
}

// Mailer implements ports.Sender over authenticated SMTP.
type Mailer struct {
	cfg Config
	log log.Logger

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ ports.Sender = (*Mailer)(nil)

// New creates a Mailer. Returns an error when the config cannot identify a
// server or a sender.
func New(cfg Config, logger log.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail: from address is required")
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Mailer{cfg: cfg, log: logger, send: smtp.SendMail}, nil
}

func (m *Mailer) addr() string {
	return net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))
}

func (m *Mailer) auth() smtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}

// Verify checks that the server is reachable and, when credentials are
// configured, that they are accepted. Called once at startup.
func (m *Mailer) Verify(ctx context.Context) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", m.addr())
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", m.addr(), err)
	}
	cl, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer cl.Close()
	if a := m.auth(); a != nil {
		if ok, _ := cl.Extension("STARTTLS"); ok {
			if err := cl.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
		if err := cl.Auth(a); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	return cl.Quit()
}

// Send delivers one message. The body is sent as HTML; a configured
// attachment rides along in a multipart container.
func (m *Mailer) Send(_ context.Context, msg ports.Message) (ports.SendResult, error) {
	to := strings.TrimSpace(msg.Address)
	if to == "" || !strings.Contains(to, "@") {
		return ports.SendResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, msg.Address)
	}

	id := uuid.NewString()
	payload, err := m.build(id, to, msg)
	if err != nil {
		return ports.SendResult{}, err
	}
	if err := m.send(m.addr(), m.auth(), m.cfg.From, []string{to}, payload); err != nil {
		return ports.SendResult{}, fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return ports.SendResult{MessageID: id, Timestamp: time.Now()}, nil
}

func (m *Mailer) build(id, to string, msg ports.Message) ([]byte, error) {
	subject := msg.Subject
	if subject == "" {
		subject = "Message"
	}
	domainPart := m.cfg.Host

	var b bytes.Buffer
	writeHeader := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	writeHeader("From", m.cfg.From)
	writeHeader("To", to)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Message-ID", fmt.Sprintf("<%s@%s>", id, domainPart))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")

	htmlBody := toHTML(msg.Body)

	if msg.AttachmentPath == "" {
		writeHeader("Content-Type", `text/html; charset="utf-8"`)
		b.WriteString("\r\n")
		b.WriteString(htmlBody)
		return b.Bytes(), nil
	}

	data, err := os.ReadFile(msg.AttachmentPath)
	if err != nil {
		return nil, fmt.Errorf("mail: read attachment: %w", err)
	}
	boundary := "b-" + uuid.NewString()
	writeHeader("Content-Type", fmt.Sprintf(`multipart/mixed; boundary=%q`, boundary))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	name := filepath.Base(msg.AttachmentPath)
	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: application/octet-stream; name=%q\r\n", name)
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", name)
	fmt.Fprintf(&b, "Content-Transfer-Encoding: base64\r\n\r\n")
	writeBase64(&b, data)
	fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)
	return b.Bytes(), nil
}

// toHTML turns plain message text into a minimal HTML body, preserving
// line breaks.
func toHTML(body string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;",
	).Replace(body)
	return "<html><body><p>" +
		strings.ReplaceAll(escaped, "\n", "<br>") +
		"</p></body></html>"
}

// writeBase64 wraps encoded output at 76 columns per RFC 2045.
func writeBase64(b *bytes.Buffer, data []byte) {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
}
