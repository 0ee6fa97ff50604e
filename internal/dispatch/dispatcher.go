// Package dispatch implements the bulk send engine: it walks recipient rows
// in order, personalizes the message body, paces consecutive sends, and
// records exactly one ledger outcome per submitted recipient.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/internal/template"
	"github.com/outflow-sh/outflow/pkg/log"
)

// ResolveFunc normalizes a raw address into a transport address.
type ResolveFunc func(raw string) (string, error)

// Request describes one bulk run.
type Request struct {
	Rows []domain.Row

	// Template, when non-empty, overrides per-row message columns. Supports
	// {{key}} placeholders resolved against each row.
	Template string

	// Subject is applied to every message (mail transport only).
	Subject string

	// AttachmentPath, when set, is attached to every message.
	AttachmentPath string
}

// Dispatcher runs bulk sends against a single sender. One run at a time;
// callers serialize.
type Dispatcher struct {
	sender  ports.Sender
	resolve ResolveFunc
	delay   DelayPolicy
	limiter *rate.Limiter
	log     log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDelay overrides the inter-send pacing policy.
func WithDelay(p DelayPolicy) Option {
	return func(d *Dispatcher) { d.delay = p }
}

// WithLimiter adds a global token-bucket cap on send rate, applied on top of
// the inter-send delay.
func WithLimiter(l *rate.Limiter) Option {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithLogger sets the run logger.
func WithLogger(l log.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New creates a Dispatcher. By default sends are paced with DefaultDelay and
// logging is disabled.
func New(sender ports.Sender, resolve ResolveFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		resolve: resolve,
		delay:   DefaultDelay(),
		log:     log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the bulk send and returns the ledger, one outcome per
// recipient in input order. Rows with an empty address cell are skipped
// without a ledger entry. A failing recipient never aborts the run; Run
// returns a non-nil error only when ctx ends the run early, and then the
// ledger holds the outcomes recorded so far.
func (d *Dispatcher) Run(ctx context.Context, req Request) (domain.Ledger, error) {
	recipients := d.prepare(req)
	ledger := make(domain.Ledger, 0, len(recipients))

	sent := false
	for _, rc := range recipients {
		if rc.ResolveErr != nil {
			ledger = append(ledger, outcome(rc, domain.StatusInvalid, rc.ResolveErr.Error(), ""))
			d.log.Warn("invalid address",
				log.String("address", rc.RawAddress),
				log.Err(rc.ResolveErr))
			continue
		}

		if sent {
			if err := Wait(ctx, d.delay.Next()); err != nil {
				return ledger, err
			}
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return ledger, err
			}
		}
		if err := ctx.Err(); err != nil {
			return ledger, err
		}

		res, err := d.sendOne(ctx, rc, req.Subject)
		sent = true
		if err != nil {
			status := classify(err)
			ledger = append(ledger, outcome(rc, status, err.Error(), ""))
			d.log.Warn("send failed",
				log.String("address", rc.RawAddress),
				log.String("status", string(status)),
				log.Err(err))
			continue
		}
		ledger = append(ledger, outcome(rc, domain.StatusSent, "", res.MessageID))
		d.log.Info("message sent",
			log.String("address", rc.ResolvedAddress),
			log.String("id", res.MessageID))
	}

	s := ledger.Summarize()
	d.log.Info("run finished",
		log.Int("total", s.Total),
		log.Int("sent", s.Sent),
		log.Int("invalid", s.Invalid),
		log.Int("failed", s.Failed))
	return ledger, nil
}

// prepare turns rows into recipients: skips rows with an empty address cell,
// resolves addresses, and personalizes bodies. Rows that fail resolution are
// kept with ResolveErr set so they ledger as invalid.
func (d *Dispatcher) prepare(req Request) []domain.Recipient {
	recipients := make([]domain.Recipient, 0, len(req.Rows))
	for _, row := range req.Rows {
		raw := row.Address()
		if raw == "" {
			continue
		}
		name := row.Name()

		rc := domain.Recipient{
			RawAddress:     raw,
			DisplayName:    name,
			AttachmentPath: req.AttachmentPath,
		}
		resolved, err := d.resolve(raw)
		if err != nil {
			rc.ResolveErr = err
		} else {
			rc.ResolvedAddress = resolved
		}

		rc.Body = d.body(req, row, raw, name)
		recipients = append(recipients, rc)
	}
	return recipients
}

// body picks the message text for one row: the request template when given,
// the per-row message column otherwise, and a plain greeting when neither
// exists.
func (d *Dispatcher) body(req Request, row domain.Row, raw, name string) string {
	if req.Template != "" {
		vals := make(map[string]string, len(row.Values)+2)
		for k, v := range row.Values {
			vals[k] = v
		}
		// Canonical keys win over the raw role columns.
		vals["number"] = raw
		if name != "" {
			vals["name"] = name
		}
		return template.Render(req.Template, vals, nil)
	}
	if msg := row.Message(); msg != "" {
		return msg
	}
	if name == "" {
		name = "there"
	}
	return "Hello " + name
}

// sendOne submits one message, converting a sender panic into an error so a
// single bad recipient cannot take the run down.
func (d *Dispatcher) sendOne(ctx context.Context, rc domain.Recipient, subject string) (res ports.SendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return d.sender.Send(ctx, ports.Message{
		Address:        rc.ResolvedAddress,
		Body:           rc.Body,
		Subject:        subject,
		AttachmentPath: rc.AttachmentPath,
	})
}

// classify maps a send error to a ledger status. Address-shaped failures
// ledger as invalid; everything else as failed.
func classify(err error) domain.Status {
	if errors.Is(err, domain.ErrInvalidAddress) || errors.Is(err, domain.ErrRecipientNotFound) {
		return domain.StatusInvalid
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not registered") || strings.Contains(msg, "item-not-found") {
		return domain.StatusInvalid
	}
	return domain.StatusFailed
}

func outcome(rc domain.Recipient, status domain.Status, errMsg, messageID string) domain.Outcome {
	return domain.Outcome{
		Address:   rc.RawAddress,
		Name:      rc.DisplayName,
		Message:   rc.Body,
		Status:    status,
		Error:     errMsg,
		MessageID: messageID,
		Timestamp: time.Now(),
	}
}
