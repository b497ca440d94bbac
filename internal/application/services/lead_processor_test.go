package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	err   error
	forms []leads.ContactFormData
}

func (f *fakeSheets) Append(_ context.Context, form leads.ContactFormData) error {
	f.forms = append(f.forms, form)
	return f.err
}

type fakeMailer struct {
	err    error
	panics bool
	calls  int
}

func (f *fakeMailer) SendLeadNotification(context.Context, leads.ContactFormData) error {
	f.calls++
	if f.panics {
		panic("template exploded")
	}
	return f.err
}

type fakeCRM struct {
	err   error
	leads []leads.CRMLead
}

func (f *fakeCRM) CreateContact(_ context.Context, lead leads.CRMLead) error {
	f.leads = append(f.leads, lead)
	return f.err
}

func validForm() leads.ContactFormData {
	return leads.ContactFormData{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "We need a new storefront before spring.",
	}
}

func TestProcessLeadIsolatesSinkFailures(t *testing.T) {
	sheets := &fakeSheets{}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	crm := &fakeCRM{}
	p := NewLeadProcessor(sheets, mailer, crm, logging.NewDiscardLogger())

	result := p.ProcessLead(context.Background(), validForm(), 50)

	assert.Equal(t, LeadResult{GoogleSheets: true, Email: false, CRM: true}, result)
	assert.True(t, result.Delivered())
	require.Len(t, crm.leads, 1)
	assert.Equal(t, "Ada", crm.leads[0].FirstName)
	assert.Equal(t, "Lovelace", crm.leads[0].LastName)
	assert.Equal(t, 50, crm.leads[0].LeadScore)
}

func TestProcessLeadRecoversPanics(t *testing.T) {
	crm := &fakeCRM{}
	p := NewLeadProcessor(nil, &fakeMailer{panics: true}, crm, logging.NewDiscardLogger())

	result := p.ProcessLead(context.Background(), validForm(), 0)
	assert.Equal(t, LeadResult{CRM: true}, result)
}

func TestProcessLeadWithoutSinks(t *testing.T) {
	p := NewLeadProcessor(nil, nil, nil, logging.NewDiscardLogger())
	result := p.ProcessLead(context.Background(), validForm(), 0)
	assert.Equal(t, LeadResult{}, result)
	assert.False(t, result.Delivered())
}

func TestSubmitRejectsInvalidForm(t *testing.T) {
	sheets := &fakeSheets{}
	svc := NewLeadService(NewLeadProcessor(sheets, nil, nil, logging.NewDiscardLogger()), leads.NewRateLimiter(3, 0), nil, logging.NewDiscardLogger())

	_, err := svc.Submit(context.Background(), leads.ContactFormData{Name: "A", Email: "nope", Message: "short"}, "10.0.0.1")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{leads.ErrMsgName, leads.ErrMsgEmail, leads.ErrMsgMessage}, verr.Errors)
	assert.Empty(t, sheets.forms)
}

func TestSubmitRateLimitsPerClient(t *testing.T) {
	ctx := context.Background()
	sheets := &fakeSheets{}
	svc := NewLeadService(NewLeadProcessor(sheets, nil, nil, logging.NewDiscardLogger()), leads.NewRateLimiter(3, 5*time.Minute), nil, logging.NewDiscardLogger())

	for i := 0; i < 3; i++ {
		result, err := svc.Submit(ctx, validForm(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.GoogleSheets)
	}
	_, err := svc.Submit(ctx, validForm(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = svc.Submit(ctx, validForm(), "10.0.0.2")
	assert.NoError(t, err)
	assert.Len(t, sheets.forms, 4)
	assert.False(t, sheets.forms[0].SubmittedAt.IsZero())
}

func TestSubmitTracksQuoteAndScoresLead(t *testing.T) {
	ctx := context.Background()
	analyticsSvc := NewAnalyticsService(storage.NewMemoryStore(), AnalyticsOptions{}, logging.NewDiscardLogger())
	defer analyticsSvc.Close()
	analyticsSvc.StartSession("session_a", "", analytics.ClientHints{})

	crm := &fakeCRM{}
	svc := NewLeadService(NewLeadProcessor(nil, nil, crm, logging.NewDiscardLogger()), leads.NewRateLimiter(3, 5*time.Minute), analyticsSvc, logging.NewDiscardLogger())

	form := validForm()
	form.SessionID = "session_a"
	form.Budget = "$10k-$25k"
	result, err := svc.Submit(ctx, form, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.CRM)

	require.Len(t, crm.leads, 1)
	assert.Equal(t, 150, crm.leads[0].LeadScore)

	session := analyticsSvc.Tracker("session_a").Session()
	assert.Equal(t, 1, session.FormsSubmitted)
	analyticsSvc.Wait()
}
