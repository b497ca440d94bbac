// Package services provides application-level orchestration services
package services

import "errors"

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrRateLimited     = errors.New("too many submissions, please try again later")
	ErrVoiceDisabled   = errors.New("voice messages are not enabled")
	ErrUnknownSession  = errors.New("unknown session")
	ErrNoPendingPrompt = errors.New("no install prompt is waiting for an outcome")
	ErrInvalidOutcome  = errors.New("install outcome must be accepted or dismissed")
)

// ValidationError carries the human readable form errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "submission failed validation"
}
