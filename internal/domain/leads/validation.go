package leads

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinNameLength    = 2
	MinMessageLength = 10
)

// Validation messages returned to the form.
const (
	ErrMsgName    = "Name must be at least 2 characters"
	ErrMsgEmail   = "Please enter a valid email address"
	ErrMsgMessage = "Message must be at least 10 characters"
	ErrMsgSpam    = "Message contains blocked content"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var spamKeywords = []string{
	"viagra", "casino", "lottery", "bitcoin investment", "crypto giveaway",
	"click here", "free money", "work from home", "seo backlinks",
}

// Validate runs the synchronous form rules and returns every failure.
// An empty result means the submission may be processed.
func Validate(f ContactFormData) []string {
	var errs []string

	if utf8.RuneCountInString(strings.TrimSpace(f.Name)) < MinNameLength {
		errs = append(errs, ErrMsgName)
	}
	if !emailPattern.MatchString(strings.TrimSpace(f.Email)) {
		errs = append(errs, ErrMsgEmail)
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Message)) < MinMessageLength {
		errs = append(errs, ErrMsgMessage)
	}
	if containsSpam(f.Message) || containsSpam(f.Name) {
		errs = append(errs, ErrMsgSpam)
	}

	return errs
}

func containsSpam(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
