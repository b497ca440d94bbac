package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
)

// SheetsAppender appends one submission row to a spreadsheet.
type SheetsAppender interface {
	Append(ctx context.Context, form leads.ContactFormData) error
}

// ContactCreator creates a contact in the configured CRM.
type ContactCreator interface {
	CreateContact(ctx context.Context, lead leads.CRMLead) error
}

// LeadResult reports which sinks accepted the lead. An unconfigured sink is false.
type LeadResult struct {
	GoogleSheets bool `json:"googleSheets"`
	Email        bool `json:"email"`
	CRM          bool `json:"crm"`
}

// Delivered reports whether at least one sink took the lead.
func (r LeadResult) Delivered() bool {
	return r.GoogleSheets || r.Email || r.CRM
}

// LeadProcessor forwards a submission to every configured sink. Sinks run one
// after another and each failure is isolated; there is no retry.
type LeadProcessor struct {
	sheets SheetsAppender
	email  email.Service
	crm    ContactCreator
	logger *logging.ChanneledLogger
}

// NewLeadProcessor accepts nil for any sink that is not configured.
func NewLeadProcessor(sheets SheetsAppender, mail email.Service, crm ContactCreator, logger *logging.ChanneledLogger) *LeadProcessor {
	return &LeadProcessor{sheets: sheets, email: mail, crm: crm, logger: logger}
}

// ProcessLead never fails as a whole.
func (p *LeadProcessor) ProcessLead(ctx context.Context, form leads.ContactFormData, score int) LeadResult {
	start := time.Now()
	var result LeadResult

	if p.sheets != nil {
		result.GoogleSheets = p.run("sheets", func() error { return p.sheets.Append(ctx, form) })
	}
	if p.email != nil {
		result.Email = p.run("email", func() error { return p.email.SendLeadNotification(ctx, form) })
	}
	if p.crm != nil {
		result.CRM = p.run("crm", func() error { return p.crm.CreateContact(ctx, form.ToCRMLead(score)) })
	}

	p.logger.Leads().Info("Lead processed",
		"googleSheets", result.GoogleSheets,
		"email", result.Email,
		"crm", result.CRM,
		"duration", time.Since(start))
	return result
}

func (p *LeadProcessor) run(sink string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Leads().Error("Lead sink panicked", "sink", sink, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		p.logger.Leads().Error("Lead sink failed", "sink", sink, "error", err.Error())
		return false
	}
	return true
}
