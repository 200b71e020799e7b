package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/hostwatch/internal/clock"
	"github.com/hamed0406/hostwatch/internal/config"
	"github.com/hamed0406/hostwatch/internal/httpapi"
	"github.com/hamed0406/hostwatch/internal/logging"
	"github.com/hamed0406/hostwatch/internal/monitor"
	"github.com/hamed0406/hostwatch/internal/notify"
	"github.com/hamed0406/hostwatch/internal/probe"
	"github.com/hamed0406/hostwatch/internal/repo/memory"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Monitor the target until the local network goes down or a signal arrives",
		Args:  cobra.NoArgs,
		RunE:  runMonitor,
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(path, envFile)
}

func runMonitor(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config_loaded", zap.Any("config", cfg.Redacted()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, err := probe.New(cfg.TargetKind(), cfg.ProbeTimeout)
	if err != nil {
		return fmt.Errorf("target probe: %w", err)
	}
	defer closeChecker(&err, target)

	reference := target
	if cfg.ReferenceKind() != cfg.TargetKind() {
		reference, err = probe.New(cfg.ReferenceKind(), cfg.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("reference probe: %w", err)
		}
		defer closeChecker(&err, reference)
	}

	var sink notify.Notifier = notify.Nop{}
	if cfg.NotifyURL != "" {
		sink = notify.NewWebhook(cfg.NotifyURL, cfg.NotifyToken, cfg.NotifyTimeout)
	} else {
		logger.Warn("notify_disabled", zap.String("reason", "no notify_url configured"))
	}
	notifier := notify.NewBestEffort(sink, cfg.NotifyTimeout, logger)

	formatter, err := clock.NewFormatter(cfg.DisplayTimezone, cfg.TimeLayout)
	if err != nil {
		return err
	}
	store := memory.New()

	mon, err := monitor.New(cfg.Monitor(), target, reference, notifier,
		monitor.WithLogger(logger),
		monitor.WithClock(formatter),
		monitor.WithStatusStore(store),
		monitor.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		api := httpapi.NewServer(logger, store, cfg.StatusAPIKeys)
		go func() {
			if err := api.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				logger.Error("status_server_failed", zap.Error(err))
			}
		}()
	}

	err = mon.Run(ctx)
	switch {
	case errors.Is(err, monitor.ErrLocalNetworkDown):
		logger.Warn("exit_local_network_down")
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info("exit_signal")
		return nil
	}
	return err
}

// closeChecker releases sockets held by checkers such as ICMPChecker.
func closeChecker(errp *error, c probe.Checker) {
	if cl, ok := c.(io.Closer); ok {
		multierr.AppendInvoke(errp, multierr.Close(cl))
	}
}
