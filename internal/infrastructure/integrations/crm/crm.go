// Package crm creates contacts in the configured CRM provider.
package crm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations"
)

// Provider discriminates the contact payload shape.
type Provider string

const (
	HubSpot   Provider = "hubspot"
	Zoho      Provider = "zoho"
	Pipedrive Provider = "pipedrive"
)

var ErrUnknownCRM = errors.New("crm: unknown provider")

var defaultBaseURLs = map[Provider]string{
	HubSpot:   "https://api.hubapi.com",
	Zoho:      "https://www.zohoapis.com",
	Pipedrive: "https://api.pipedrive.com",
}

// Client talks to one provider.
type Client struct {
	provider Provider
	apiKey   string
	baseURL  string
	doer     integrations.Doer
}

// NewClient picks the provider by name. An empty baseURL uses the provider default.
func NewClient(kind, apiKey, baseURL string, doer integrations.Doer) (*Client, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(kind)))
	def, ok := defaultBaseURLs[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRM, kind)
	}
	if baseURL == "" {
		baseURL = def
	}
	return &Client{provider: p, apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/"), doer: doer}, nil
}

func (c *Client) Provider() Provider { return c.provider }

// CreateContact sends lead to the provider.
func (c *Client) CreateContact(ctx context.Context, lead leads.CRMLead) error {
	var (
		endpoint string
		headers  map[string]string
		body     any
	)

	switch c.provider {
	case HubSpot:
		endpoint = c.baseURL + "/crm/v3/objects/contacts"
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
		body = hubspotContact(lead)
	case Zoho:
		endpoint = c.baseURL + "/crm/v2/Leads"
		headers = map[string]string{"Authorization": "Zoho-oauthtoken " + c.apiKey}
		body = zohoLead(lead)
	case Pipedrive:
		endpoint = c.baseURL + "/v1/persons?api_token=" + url.QueryEscape(c.apiKey)
		body = pipedrivePerson(lead)
	default:
		return ErrUnknownCRM
	}

	if err := integrations.PostJSON(ctx, c.doer, endpoint, headers, body); err != nil {
		return fmt.Errorf("%s contact creation failed: %w", c.provider, err)
	}
	return nil
}

func hubspotContact(l leads.CRMLead) map[string]any {
	props := map[string]string{
		"email":          l.Email,
		"firstname":      l.FirstName,
		"lastname":       l.LastName,
		"phone":          l.Phone,
		"company":        l.Company,
		"lifecyclestage": "lead",
		"hs_lead_status": "NEW",
		"message":        l.Notes,
		"lead_source":    l.Source,
		"project_type":   l.ProjectType,
		"budget":         l.Budget,
		"lead_score":     fmt.Sprint(l.LeadScore),
	}
	for k, v := range props {
		if v == "" {
			delete(props, k)
		}
	}
	return map[string]any{"properties": props}
}

func zohoLead(l leads.CRMLead) map[string]any {
	last := l.LastName
	if last == "" {
		last = l.FirstName
	}
	company := l.Company
	if company == "" {
		company = "Individual"
	}
	return map[string]any{
		"data": []map[string]any{{
			"First_Name":  l.FirstName,
			"Last_Name":   last,
			"Email":       l.Email,
			"Phone":       l.Phone,
			"Company":     company,
			"Lead_Source": l.Source,
			"Description": l.Notes,
		}},
	}
}

func pipedrivePerson(l leads.CRMLead) map[string]any {
	person := map[string]any{
		"name":  strings.TrimSpace(l.FirstName + " " + l.LastName),
		"email": []map[string]any{{"value": l.Email, "primary": true, "label": "work"}},
	}
	if l.Phone != "" {
		person["phone"] = []map[string]any{{"value": l.Phone, "primary": true, "label": "work"}}
	}
	return person
}
