package main

import (
	"errors"
	"fmt"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/spf13/cobra"
)

var leadForm leads.ContactFormData

var validateLeadCmd = &cobra.Command{
	Use:   "validate-lead",
	Short: "Run the contact form validation rules without submitting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		problems := leads.Validate(leadForm)
		if len(problems) == 0 {
			fmt.Fprintln(out, "valid")
			if leadForm.IsQuoteRequest() {
				fmt.Fprintln(out, "counts as a quote request")
			}
			return nil
		}
		for _, p := range problems {
			fmt.Fprintf(out, "- %s\n", p)
		}
		return errors.New("contact form is invalid")
	},
}

func init() {
	f := validateLeadCmd.Flags()
	f.StringVar(&leadForm.Name, "name", "", "Visitor name")
	f.StringVar(&leadForm.Email, "email", "", "Visitor email")
	f.StringVar(&leadForm.Phone, "phone", "", "Phone number")
	f.StringVar(&leadForm.Company, "company", "", "Company")
	f.StringVar(&leadForm.ProjectType, "project-type", "", "Project type")
	f.StringVar(&leadForm.Budget, "budget", "", "Budget range")
	f.StringVar(&leadForm.Timeline, "timeline", "", "Timeline")
	f.StringVar(&leadForm.Message, "message", "", "Message body")
}
