// Package leads defines contact form submissions, their validation rules and
// the local submission rate limit.
package leads

import (
	"strings"
	"time"
)

// ContactFormData is built at submission time and forwarded to the lead
// sinks. It is never retained after the fan-out.
type ContactFormData struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Company     string            `json:"company,omitempty"`
	ProjectType string            `json:"projectType,omitempty"`
	Budget      string            `json:"budget,omitempty"`
	Timeline    string            `json:"timeline,omitempty"`
	Message     string            `json:"message"`
	Source      string            `json:"source,omitempty"`
	UTM         map[string]string `json:"utm,omitempty"`
	PageURL     string            `json:"pageUrl,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty"`
	SessionID   string            `json:"sessionId,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

// IsQuoteRequest reports whether the submission asks for pricing.
func (f ContactFormData) IsQuoteRequest() bool {
	return f.Budget != "" || strings.EqualFold(f.Source, "quote")
}

// CRMLead is the provider-neutral contact handed to the CRM client.
type CRMLead struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Company     string
	Source      string
	Notes       string
	ProjectType string
	Budget      string
	LeadScore   int
}

// ToCRMLead splits the name and folds the free text into notes.
func (f ContactFormData) ToCRMLead(score int) CRMLead {
	first, last := splitName(f.Name)
	source := f.Source
	if source == "" {
		source = "website"
	}
	return CRMLead{
		FirstName:   first,
		LastName:    last,
		Email:       strings.TrimSpace(f.Email),
		Phone:       f.Phone,
		Company:     f.Company,
		Source:      source,
		Notes:       f.Message,
		ProjectType: f.ProjectType,
		Budget:      f.Budget,
		LeadScore:   score,
	}
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
