// Package responder maps free text onto canned replies by keyword matching.
// There is no language understanding and no memory between calls.
package responder

import "strings"

// Response is a canned reply plus the quick replies offered with it.
type Response struct {
	Text         string   `json:"text"`
	QuickReplies []string `json:"quickReplies"`
}

type rule struct {
	topic        string
	keywords     []string
	text         string
	quickReplies []string
}

// rules are checked in order; the first rule with a matching keyword wins.
var rules = []rule{
	{
		topic:    "services",
		keywords: []string{"service", "website", "web app", "mobile app", "develop", "design", "ecommerce", "e-commerce", "seo", "build"},
		text: "We build custom websites, web applications, mobile apps and e-commerce stores, " +
			"plus SEO and ongoing maintenance. Which of these fits your project best?",
		quickReplies: []string{"Web development", "Mobile apps", "E-commerce", "SEO services"},
	},
	{
		topic:    "pricing",
		keywords: []string{"price", "pricing", "cost", "quote", "budget", "how much", "estimate", "rate"},
		text: "Every project is priced on its scope. Most websites start around $2,500 and " +
			"custom applications from $10,000. Would you like a free, detailed quote?",
		quickReplies: []string{"Yes, get quote", "See portfolio", "Contact sales", "Schedule call"},
	},
	{
		topic:    "contact",
		keywords: []string{"contact", "call", "phone", "email", "talk", "speak", "meeting", "schedule"},
		text: "You can reach the team by email, phone or WhatsApp, or book a free 30 minute " +
			"consultation. How would you like to get in touch?",
		quickReplies: []string{"Schedule call", "Send email", "WhatsApp", "Call now"},
	},
	{
		topic:    "portfolio",
		keywords: []string{"portfolio", "work", "example", "project", "case stud", "client"},
		text: "We have shipped projects for startups and established brands across retail, " +
			"healthcare and finance. Want to browse the portfolio or read a case study?",
		quickReplies: []string{"View portfolio", "Case studies", "Client reviews", "Get quote"},
	},
}

var fallback = Response{
	Text: "Thanks for your message! Let me connect you with the team so you get the right answer. " +
		"In the meantime, is there anything specific I can help with?",
	QuickReplies: []string{"Our services", "Get pricing", "Contact team", "View portfolio"},
}

// Respond returns the canned reply for text. The same input always yields
// the same output.
func Respond(text string) Response {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.response()
			}
		}
	}
	return fallback.clone()
}

// Topic reports which rule text falls under, "" for the fallback.
func Topic(text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.topic
			}
		}
	}
	return ""
}

// ForAttachment acknowledges an uploaded file.
func ForAttachment(filename string) Response {
	return Response{
		Text:         "Thanks, we received " + filename + ". The team will review it and get back to you shortly.",
		QuickReplies: []string{"Get quote", "Contact team"},
	}
}

// Greeting is the first bot message of a fresh conversation.
func Greeting() Response {
	return Response{
		Text:         "Hi there! How can we help with your next project?",
		QuickReplies: []string{"Our services", "Get pricing", "View portfolio", "Contact team"},
	}
}

func (r rule) response() Response {
	return Response{Text: r.text, QuickReplies: append([]string(nil), r.quickReplies...)}
}

func (r Response) clone() Response {
	return Response{Text: r.Text, QuickReplies: append([]string(nil), r.QuickReplies...)}
}
