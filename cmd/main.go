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
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "roomd",
		Short: "Multi-tenant real-time room server",
		Long: `roomd is a lightweight room server: clients join named rooms over a
websocket, exchange ephemeral messages, and share a per-room state
document that is broadcast to all members and persisted to disk. A
companion HTTP API reads and writes the same room state and manages a
flat file store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		genkeyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
