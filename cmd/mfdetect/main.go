// Command mfdetect runs matched-filter detection of template waveforms in
// continuous data.
//
// Usage:
//
//	mfdetect detect --templates tribe.json --data day.json
//	mfdetect scan --templates tribe.json --data archive.json --start 2024-03-01T00:00:00Z --end 2024-03-02T00:00:00Z
//	mfdetect groups --templates tribe.json
//	mfdetect version
//
// Settings come from an optional YAML file (--config) and are overridden by
// flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mfdetect",
		Short: "Matched-filter earthquake detection",
		Long: `mfdetect correlates template waveforms of known events against
continuous multi-channel data and reports every time the summed
normalized cross-correlation exceeds a threshold.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(detectCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(groupsCmd())
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mfdetect %s\n", version)
		},
	}
}
