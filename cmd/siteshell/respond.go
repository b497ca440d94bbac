package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/responder"
	"github.com/spf13/cobra"
)

var respondJSON bool

var respondCmd = &cobra.Command{
	Use:   "respond <text>",
	Short: "Print the canned chat reply for a visitor message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		resp := responder.Respond(text)
		out := cmd.OutOrStdout()

		if respondJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Topic string `json:"topic"`
				responder.Response
			}{Topic: responder.Topic(text), Response: resp})
		}

		topic := responder.Topic(text)
		if topic == "" {
			topic = "fallback"
		}
		fmt.Fprintf(out, "[%s] %s\n", topic, resp.Text)
		for _, qr := range resp.QuickReplies {
			fmt.Fprintf(out, "  > %s\n", qr)
		}
		return nil
	},
}

func init() {
	respondCmd.Flags().BoolVar(&respondJSON, "json", false, "Print the reply as JSON")
}
