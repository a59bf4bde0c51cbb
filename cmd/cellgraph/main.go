package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cellgraph",
		Short: "Reactive cell graphs for Go",
		Long: `Cellgraph is a reactive cell graph library for Go.

Source cells hold values set by external code; derived cells recompute
lazily from other cells through pure functions. This CLI runs a demo
graph behind the live server for inspecting propagation behavior:

  • HTTP snapshot and per-cell endpoints
  • Live updates over WebSocket
  • Prometheus metrics and optional OpenTelemetry tracing
  • Periodic snapshots to disk or S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
