package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/outflow-sh/outflow"
	"github.com/outflow-sh/outflow/internal/cliconfig"
	"github.com/outflow-sh/outflow/pkg/log"
)

const helpDescription = `
Bulk outbound messaging agent: upload a recipient CSV over the HTTP API and
outflow personalizes, paces, and delivers one message per row, keeping a
per-recipient ledger of what happened.

Highlights:
  - WhatsApp delivery with persistent device pairing (QR challenge on first run).
  - Optional SMTP delivery for email recipient lists.
  - Humanized send pacing with jitter, reloadable from the config file.
  - Configure via file, OUTFLOW_* environment variables, or flags.
`

var exampleUsage = strings.TrimSpace(`
  outflow --listen :3000
  outflow --config $HOME/.outflow/config.toml --country-code 1
  outflow --smtp-host smtp.example.com --smtp-user sender@example.com
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "outflow",
		Short:   "Bulk outbound messaging agent with an HTTP control API",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides file config but is overridden by flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.NewZerologAdapter(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return outflow.Run(ctx, cfg,
				outflow.WithLogger(logger),
				outflow.WithConfigFile(cfgFile, changed),
			)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.outflow/config.toml)")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for credentials and run reports (default: $HOME/.outflow)")
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP API bind address")

	root.Flags().StringVar(&cfg.CountryCode, "country-code", cfg.CountryCode, "country code prepended to bare 10-digit numbers")
	root.Flags().StringVar(&cfg.AddressDomain, "address-domain", cfg.AddressDomain, "transport address domain suffix")
	if err := root.Flags().MarkHidden("address-domain"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to hide address-domain flag:", err)
	}

	root.Flags().DurationVar(&cfg.DelayFixed, "delay-fixed", cfg.DelayFixed, "constant inter-send delay (overrides the jitter window)")
	root.Flags().DurationVar(&cfg.DelayMin, "delay-min", cfg.DelayMin, "minimum inter-send delay")
	root.Flags().DurationVar(&cfg.DelayMax, "delay-max", cfg.DelayMax, "maximum inter-send delay")
	root.Flags().IntVar(&cfg.MaxSendsPerMinute, "max-per-minute", cfg.MaxSendsPerMinute, "global send rate cap (0 disables)")

	root.Flags().IntVar(&cfg.SendAttempts, "send-attempts", cfg.SendAttempts, "delivery attempts per message")
	root.Flags().DurationVar(&cfg.SendBackoffStep, "send-backoff", cfg.SendBackoffStep, "backoff step between delivery attempts")
	root.Flags().DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "how long startup waits for the transport handshake")

	root.Flags().StringVar(&cfg.SMTPHost, "smtp-host", cfg.SMTPHost, "SMTP server host (enables the email endpoints)")
	root.Flags().IntVar(&cfg.SMTPPort, "smtp-port", cfg.SMTPPort, "SMTP server port")
	root.Flags().StringVar(&cfg.SMTPUser, "smtp-user", cfg.SMTPUser, "SMTP username")
	root.Flags().StringVar(&cfg.SMTPPass, "smtp-pass", cfg.SMTPPass, "SMTP password")
	root.Flags().StringVar(&cfg.SMTPFrom, "smtp-from", cfg.SMTPFrom, "email sender address (defaults to smtp-user)")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "outflow:", err)
		os.Exit(1)
	}
}
