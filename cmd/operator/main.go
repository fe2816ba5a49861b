// Package main provides the operator CLI for deployment and operations tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

var logLevel string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "operator",
	Short: "memorify operator - deployment and operations CLI",
	Long: `Deployment and operations CLI for the memorify companion engine.

Examples:
  operator migrate                       # Create or update the application tables
  operator validate                      # Check env configuration and database connectivity
  operator run-loop --user u_123         # Run one agent loop against stored entries
  operator issue-token --user u_123      # Issue a bearer token for the HTTP API`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("memorify operator v%s\n", version)
		},
	})
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
