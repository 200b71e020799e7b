package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hostwatch",
	Short: "Host availability monitor",
	Long: "hostwatch pings a target on an interval, tells a target outage apart from a local\n" +
		"network outage by checking a reference host, and pushes notifications on\n" +
		"outage, periodically during it, and on recovery.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a dotenv file (ignored if missing)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("hostwatch version %s\n", version))

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newPreflightCmd())
}
