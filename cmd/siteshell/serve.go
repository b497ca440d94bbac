package main

import (
	"log"

	"github.com/AtRiskMedia/siteshell-go/internal/application/startup"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server until SIGINT or SIGTERM",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := startup.Initialize(); err != nil {
			return err
		}
		log.Println("Application has shut down gracefully.")
		return nil
	},
}
