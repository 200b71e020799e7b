package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hamed0406/hostwatch/internal/config"
)

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Validate configuration without probing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return preflight(cmd.OutOrStdout(), cfg)
		},
	}
}

func preflight(w io.Writer, cfg config.Config) error {
	fail := func(msg string) { fmt.Fprintln(w, "✖", msg) }
	warn := func(msg string) { fmt.Fprintln(w, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(w, "✔", msg) }

	err := cfg.Validate()
	for _, e := range multierr.Errors(err) {
		fail(e.Error())
	}

	if cfg.Target != "" {
		ok(fmt.Sprintf("target=%s via %s", cfg.Target, cfg.ProbeKind))
	}
	ok(fmt.Sprintf("reference=%s via %s", cfg.Reference, cfg.ReferenceKind()))
	ok(fmt.Sprintf("poll every %s, %d attempts %s apart, reminders every %s (%s)",
		cfg.PollInterval, cfg.MaxAttempts, cfg.RetryDelay, cfg.ReminderCadence, cfg.ReminderMode))

	if cfg.NotifyURL == "" {
		warn("NOTIFY_URL empty; outages will only be printed and logged.")
	} else {
		ok("notify sink configured")
	}
	if cfg.ProbeKind == "icmp" {
		warn("icmp probes need CAP_NET_RAW or root; use probe_kind=exec otherwise.")
	}
	if cfg.StatusAddr != "" {
		ok("status endpoint on " + cfg.StatusAddr)
		if len(cfg.StatusAPIKeys) == 0 && !strings.HasPrefix(cfg.StatusAddr, "127.0.0.1") {
			warn("STATUS_API_KEYS empty; /api/status is open to anyone who can reach " + cfg.StatusAddr)
		}
	}

	if err != nil {
		return fmt.Errorf("preflight failed: %d problem(s)", len(multierr.Errors(err)))
	}
	ok("preflight passed")
	return nil
}
