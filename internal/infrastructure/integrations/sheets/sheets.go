// Package sheets appends lead rows to a spreadsheet endpoint.
package sheets

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations"
)

// Client posts rows to a values-append endpoint such as the Sheets API
// append URL or an Apps Script web app.
type Client struct {
	endpoint string
	doer     integrations.Doer
}

func NewClient(endpoint string, doer integrations.Doer) *Client {
	return &Client{endpoint: endpoint, doer: doer}
}

type appendRequest struct {
	Values [][]string `json:"values"`
}

// Row is the column order of the leads sheet.
func Row(form leads.ContactFormData) []string {
	utm := "{}"
	if len(form.UTM) > 0 {
		if raw, err := json.Marshal(form.UTM); err == nil {
			utm = string(raw)
		}
	}
	submitted := form.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	return []string{
		submitted.UTC().Format(time.RFC3339),
		form.Name,
		form.Email,
		form.Phone,
		form.ProjectType,
		form.Budget,
		form.Timeline,
		form.Message,
		form.Source,
		utm,
		form.PageURL,
		form.UserAgent,
	}
}

// Append adds one row for form.
func (c *Client) Append(ctx context.Context, form leads.ContactFormData) error {
	return integrations.PostJSON(ctx, c.doer, c.endpoint, nil, appendRequest{Values: [][]string{Row(form)}})
}
