package services

import (
	"context"
	"strings"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
)

// LeadService runs a contact form submission end to end: validation, the
// local rate limit, conversion tracking and the sink fan-out.
type LeadService struct {
	processor *LeadProcessor
	limiter   *leads.RateLimiter
	trackers  TrackerSource
	logger    *logging.ChanneledLogger
	now       func() time.Time
}

func NewLeadService(processor *LeadProcessor, limiter *leads.RateLimiter, trackers TrackerSource, logger *logging.ChanneledLogger) *LeadService {
	return &LeadService{
		processor: processor,
		limiter:   limiter,
		trackers:  trackers,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit returns a *ValidationError for bad input and ErrRateLimited when the
// client exceeded its submission budget. Sink failures are reported in the
// result only.
func (s *LeadService) Submit(ctx context.Context, form leads.ContactFormData, clientIP string) (LeadResult, error) {
	if errs := leads.Validate(form); len(errs) > 0 {
		return LeadResult{}, &ValidationError{Errors: errs}
	}

	identifier := clientIP + "|" + strings.ToLower(strings.TrimSpace(form.Email))
	if !s.limiter.Allow(identifier) {
		s.logger.Leads().Warn("Lead submission rate limited", "clientIp", clientIP)
		return LeadResult{}, ErrRateLimited
	}

	if form.SubmittedAt.IsZero() {
		form.SubmittedAt = s.now()
	}

	score := 0
	if form.SessionID != "" && s.trackers != nil {
		tracker := s.trackers.Tracker(form.SessionID)
		summary := map[string]any{
			"projectType": form.ProjectType,
			"budget":      form.Budget,
			"source":      form.Source,
		}
		tracker.TrackFormSubmission("contact", summary)
		if form.IsQuoteRequest() {
			tracker.TrackQuoteRequest(summary)
		}
		score = tracker.LeadScore()
	}

	return s.processor.ProcessLead(ctx, form, score), nil
}

// Prune drops expired rate limit windows. The server calls it periodically.
func (s *LeadService) Prune() int {
	return s.limiter.Prune()
}
