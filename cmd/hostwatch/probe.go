package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hamed0406/hostwatch/internal/probe"
)

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [address]",
		Short: "Run a single reachability check and exit 1 if it fails",
		Long:  "Checks the given address, or the configured target when none is given, once with the configured probe kind.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProbe,
	}
	cmd.Flags().String("kind", "", "Probe kind override: icmp, exec, tcp or http")
	cmd.Flags().Bool("reference", false, "Check the configured reference host instead of the target")
	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	useRef, _ := cmd.Flags().GetBool("reference")
	address, kind := cfg.Target, cfg.TargetKind()
	if useRef {
		address, kind = cfg.Reference, cfg.ReferenceKind()
	}
	if len(args) == 1 {
		address = args[0]
	}
	if k, _ := cmd.Flags().GetString("kind"); k != "" {
		if kind, err = probe.ParseKind(k); err != nil {
			return err
		}
	}
	if address == "" {
		return fmt.Errorf("no address given and no target configured")
	}
	if kind == "" {
		kind = probe.KindICMP
	}

	chk, err := probe.New(kind, cfg.ProbeTimeout)
	if err != nil {
		return err
	}
	if c, ok := chk.(io.Closer); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProbeTimeout*2)
	defer cancel()
	res := chk.Check(ctx, address)

	out := cmd.OutOrStdout()
	if !res.Success {
		fmt.Fprintf(out, "✖ %s unreachable via %s: %s\n", address, kind, res.Message)
		return fmt.Errorf("%s unreachable", address)
	}
	fmt.Fprintf(out, "✔ %s reachable via %s in %.1f ms (%s)\n", address, kind, res.LatencyMS, res.Message)
	return nil
}
