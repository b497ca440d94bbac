// Package analytics defines the event, session and sink types used by the
// event tracker.
package analytics

import (
	"context"
	"time"
)

// Event is one raw tracked interaction.
type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"event"`
	SessionID string         `json:"sessionId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// ConversionEvent is one entry in the coarse lead-scoring ledger.
type ConversionEvent struct {
	EventType string         `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Value     int            `json:"value"`
}

// Conversion values per event type.
const (
	ValueQuoteRequest   = 100
	ValueFormSubmission = 50
	ValueExternalChat   = 10
)

// DeviceInfo is derived once when the session starts and never changes.
type DeviceInfo struct {
	UserAgent  string `json:"userAgent"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"deviceType"`
	Language   string `json:"language,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	ScreenSize string `json:"screenSize,omitempty"`
	Viewport   string `json:"viewport,omitempty"`
}

// Session is the per-visit analytics record. It is not persisted across
// reloads.
type Session struct {
	SessionID          string            `json:"sessionId"`
	StartTime          time.Time         `json:"startTime"`
	EndTime            *time.Time        `json:"endTime,omitempty"`
	MessagesSent       int               `json:"messagesSent"`
	FormsSubmitted     int               `json:"formsSubmitted"`
	FilesUploaded      int               `json:"filesUploaded"`
	VoiceMessagesSent  int               `json:"voiceMessagesSent"`
	QuickActionsUsed   []string          `json:"quickActionsUsed"`
	ExternalChatClicks []string          `json:"externalChatClicks"`
	ConversionEvents   []ConversionEvent `json:"conversionEvents"`
	DeviceInfo         DeviceInfo        `json:"deviceInfo"`
}

// LeadScore sums the conversion ledger.
func (s Session) LeadScore() int {
	total := 0
	for _, c := range s.ConversionEvents {
		total += c.Value
	}
	return total
}

// Clone returns a deep enough copy for handing outside the tracker lock.
func (s Session) Clone() Session {
	out := s
	out.QuickActionsUsed = append([]string(nil), s.QuickActionsUsed...)
	out.ExternalChatClicks = append([]string(nil), s.ExternalChatClicks...)
	out.ConversionEvents = append([]ConversionEvent(nil), s.ConversionEvents...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}

// HeatmapPoint is one click or hover coordinate.
type HeatmapPoint struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Kind      string    `json:"type"`
	Element   string    `json:"element,omitempty"`
	Page      string    `json:"page,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives every tracked event. Sinks fail independently.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}
