package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "siteshell",
	Short: "Offline shell, quick chat and lead intake for the agency site",
	Long: `siteshell sits in front of the static site origin. It serves the site
through a versioned offline cache and owns the visitor-side state: the quick
chat widget, the install banner, analytics sessions and contact leads.

Configuration is read from the environment and an optional .env file.

Quick Start:
  siteshell serve                         # Run the HTTP server
  siteshell respond "how much for an app" # Preview a canned chat reply
  siteshell validate-lead --email a@b.co  # Check a contact form offline`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.AddCommand(serveCmd, respondCmd, validateLeadCmd)
}
