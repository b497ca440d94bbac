// Package email sends the transactional lead notification.
package email

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Service sends lead notifications. Tests substitute their own implementation.
type Service interface {
	SendLeadNotification(ctx context.Context, form leads.ContactFormData) error
}

// ResendClient is the Service backed by the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
	to        []string
	siteURL   string
}

// NewResendClient requires an API key and at least one recipient.
func NewResendClient(apiKey, fromEmail, fromName, siteURL string, to ...string) (*ResendClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required")
	}
	if len(to) == 0 || to[0] == "" {
		return nil, fmt.Errorf("LEAD_EMAIL_TO is required")
	}
	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		to:        to,
		siteURL:   siteURL,
	}, nil
}

// SendLeadNotification composes and sends the notification for one submission.
func (c *ResendClient) SendLeadNotification(ctx context.Context, form leads.ContactFormData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	html := templates.RenderLayout(templates.LayoutProps{
		Preheader: templates.LeadSubject(form),
		Content:   templates.GetLeadNotificationContent(form),
		SiteURL:   c.siteURL,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      c.to,
		Subject: templates.LeadSubject(form),
		Html:    html,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send lead notification via Resend: %w", err)
	}
	return nil
}
