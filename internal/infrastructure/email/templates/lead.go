package templates

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
)

// LeadSubject is the subject line for a lead notification.
func LeadSubject(form leads.ContactFormData) string {
	if form.IsQuoteRequest() {
		return fmt.Sprintf("New quote request from %s", form.Name)
	}
	return fmt.Sprintf("New enquiry from %s", form.Name)
}

// GetLeadNotificationContent renders the body of the email sent to the team
// for one submission.
func GetLeadNotificationContent(form leads.ContactFormData) string {
	utm := ""
	if len(form.UTM) > 0 {
		if raw, err := json.Marshal(form.UTM); err == nil {
			utm = string(raw)
		}
	}

	content := GetParagraph(fmt.Sprintf("%s just contacted you through the website.", form.Name))
	content += GetDetails([]DetailRow{
		{Label: "Name", Value: form.Name},
		{Label: "Email", Value: form.Email},
		{Label: "Phone", Value: form.Phone},
		{Label: "Company", Value: form.Company},
		{Label: "Project", Value: form.ProjectType},
		{Label: "Budget", Value: form.Budget},
		{Label: "Timeline", Value: form.Timeline},
		{Label: "Source", Value: form.Source},
		{Label: "Page", Value: form.PageURL},
		{Label: "UTM", Value: utm},
	})
	content += GetParagraph(form.Message)
	content += GetButton(ButtonProps{
		Text: "Reply to " + form.Name,
		URL:  "mailto:" + url.PathEscape(form.Email),
	})
	return content
}
