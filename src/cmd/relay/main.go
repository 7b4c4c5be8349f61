// Package main provides the main entry point for the relay CLI.
// This orchestrates all subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "relay - a minimal continuous-integration trigger",
	Long: `Relay listens for push and pull-request webhook notifications, runs a
build-and-test procedure against the affected commit, reports progress to the
commit status API, and deploys pushes to a configured set of refs.

It supports two modes:
- Local Mode: builds run inline in the listener process (default)
- Distributed Mode: build requests flow over Redpanda to build agents

Mode is auto-detected based on the RELAY_REDPANDA_BROKERS environment variable.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
