// Package outflow wires the bulk messaging agent: a WhatsApp (and optional
// SMTP) delivery backend behind an HTTP control API.
//
// Example usage:
//
//	cfg := outflow.DefaultConfig()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := outflow.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
package outflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/outflow-sh/outflow/internal/adapters/fs"
	"github.com/outflow-sh/outflow/internal/adapters/mail"
	"github.com/outflow-sh/outflow/internal/adapters/wa"
	"github.com/outflow-sh/outflow/internal/cliconfig"
	"github.com/outflow-sh/outflow/internal/contact"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/internal/session"
	"github.com/outflow-sh/outflow/internal/web"
	"github.com/outflow-sh/outflow/pkg/log"
)

// Config holds the agent configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config { return cliconfig.DefaultConfig() }

// Status is a point-in-time snapshot of the connection session.
type Status = session.Status

type options struct {
	logger     log.Logger
	configFile string
	changed    map[string]bool
}

// Option customizes Run.
type Option func(*options)

// WithLogger sets the logger used by every component.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfigFile enables live reloading of pacing settings from the given
// file. changed marks flags explicitly set on the command line, which keep
// winning over reloaded values.
func WithConfigFile(path string, changed map[string]bool) Option {
	return func(o *options) {
		o.configFile = path
		o.changed = changed
	}
}

// Run starts the agent and blocks until ctx is canceled or the HTTP server
// fails. cfg must already be validated.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	o := options{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	transport := wa.NewClient(filepath.Join(cfg.StateDir, "credentials"), logger)
	sess := session.New(transport,
		session.WithLogger(logger),
		session.WithConnectTimeout(cfg.ConnectTimeout),
		session.WithSendPolicy(session.ProgressiveBackoff(cfg.SendAttempts, cfg.SendBackoffStep)),
	)
	defer sess.Close()

	var mailer ports.Sender
	if cfg.MailEnabled() {
		m, err := mail.New(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		}, logger)
		if err != nil {
			return err
		}
		verifyCtx, verifyCancel := context.WithTimeout(ctx, 15*time.Second)
		if err := m.Verify(verifyCtx); err != nil {
			logger.Warn("smtp verification failed", log.Err(err))
		}
		verifyCancel()
		mailer = m
	}

	rt := cliconfig.NewRuntime(cfg)
	if o.configFile != "" {
		watcher := cliconfig.NewWatcher(o.configFile, cfg, o.changed, rt, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", log.Err(err))
		} else {
			defer watcher.Stop()
		}
	}

	server := web.New(web.Config{
		Status:   sess.Status,
		Chat:     sess,
		Mail:     mailer,
		Resolver: contact.NewResolver(cfg.CountryCode, cfg.AddressDomain),
		Runtime:  rt,
		Reports:  fs.NewReportStore(filepath.Join(cfg.StateDir, "reports"), logger),
		Logger:   logger,
	})

	// Pairing can take arbitrarily long; the API serves immediately and the
	// handshake progresses in the background.
	go func() {
		if err := sess.Connect(ctx); err != nil {
			logger.Error("transport connect", log.Err(err))
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", log.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", log.Err(err))
	}
	return nil
}
