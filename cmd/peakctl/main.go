// Package main is the entry point for peakctl, the Peak Pulse operator CLI.
package main

import (
	"fmt"
	"os"

	"peak_pulse/cmd/peakctl/internal/commands"

	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "peakctl",
		Short: "Peak Pulse operator tool",
		Long: `peakctl runs maintenance tasks against the Peak Pulse database.
It reads the same environment variables (or .env file) as the API server.`,
		SilenceUsage: true,
	}
	commands.Register(rootCmd)
	return rootCmd.Execute()
}
