package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/google/uuid"
)

// Event names sent by the tracker helpers.
const (
	EventChatOpen       = "chat_open"
	EventChatClose      = "chat_close"
	EventMessageSent    = "message_sent"
	EventQuickAction    = "quick_action"
	EventExternalChat   = "external_chat_click"
	EventFormSubmission = "form_submission"
	EventQuoteRequest   = "quote_request"
	EventFileUpload     = "file_upload"
	EventVoiceMessage   = "voice_message"
	EventSessionStart   = "session_start"
	EventSessionEnd     = "session_end"
)

// ChatTracker is the slice of the tracker the chat controller reports to.
type ChatTracker interface {
	TrackChatOpen()
	TrackChatClose()
	TrackMessageSent(length int)
	TrackQuickAction(action string)
	TrackFileUpload(filename string, size int64)
	TrackVoiceMessage(transcribed bool)
}

// HeatmapFlusher ships a full heatmap batch.
type HeatmapFlusher func(ctx context.Context, sessionID string, points []analytics.HeatmapPoint) error

// AnalyticsTracker records one visitor session and fans every event out to
// all sinks. There is no batching, retry or delivery confirmation: each
// remote sink runs in its own goroutine and failures are only logged. The
// local sink is written in emission order before the fan-out.
type AnalyticsTracker struct {
	mu           sync.Mutex
	session      analytics.Session
	local        analytics.Sink
	sinks        []analytics.Sink
	heatmap      []analytics.HeatmapPoint
	heatmapFlush int
	flusher      HeatmapFlusher
	logger       *logging.ChanneledLogger
	now          func() time.Time
	pending      sync.WaitGroup
}

var _ ChatTracker = (*AnalyticsTracker)(nil)

// NewAnalyticsTracker starts a session. device is captured once and never
// changes. local may be nil.
func NewAnalyticsTracker(sessionID string, device analytics.DeviceInfo, local analytics.Sink, sinks []analytics.Sink, heatmapFlush int, flusher HeatmapFlusher, logger *logging.ChanneledLogger) *AnalyticsTracker {
	if heatmapFlush <= 0 {
		heatmapFlush = 10
	}
	t := &AnalyticsTracker{
		local:        local,
		sinks:        sinks,
		heatmapFlush: heatmapFlush,
		flusher:      flusher,
		logger:       logger,
		now:          time.Now,
	}
	t.session = analytics.Session{
		SessionID:          sessionID,
		StartTime:          t.now(),
		QuickActionsUsed:   []string{},
		ExternalChatClicks: []string{},
		ConversionEvents:   []analytics.ConversionEvent{},
		DeviceInfo:         device,
	}
	return t
}

// TrackEvent sends name/data to every sink without waiting for them.
func (t *AnalyticsTracker) TrackEvent(name string, data map[string]any) {
	t.mu.Lock()
	event := analytics.Event{
		ID:        uuid.NewString(),
		Name:      name,
		SessionID: t.session.SessionID,
		Timestamp: t.now(),
		Data:      copyData(data),
	}
	if _, ok := event.Data["userAgent"]; !ok && t.session.DeviceInfo.UserAgent != "" {
		event.Data["userAgent"] = t.session.DeviceInfo.UserAgent
	}
	if t.local != nil {
		t.send(t.local, event)
	}
	sinks := t.sinks
	t.mu.Unlock()

	for _, sink := range sinks {
		t.pending.Add(1)
		go func() {
			defer t.pending.Done()
			t.send(sink, event)
		}()
	}
}

func (t *AnalyticsTracker) send(sink analytics.Sink, event analytics.Event) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Analytics().Error("Analytics sink panicked", "sink", sink.Name(), "event", event.Name, "panic", fmt.Sprint(r))
		}
	}()

	if err := sink.Send(context.Background(), event); err != nil {
		t.logger.Analytics().Warn("Analytics sink failed", "sink", sink.Name(), "event", event.Name, "error", err.Error())
	}
}

// Wait blocks until every in-flight sink delivery and heatmap flush finished.
func (t *AnalyticsTracker) Wait() {
	t.pending.Wait()
}

func (t *AnalyticsTracker) TrackChatOpen() {
	t.TrackEvent(EventChatOpen, nil)
}

func (t *AnalyticsTracker) TrackChatClose() {
	t.TrackEvent(EventChatClose, nil)
}

func (t *AnalyticsTracker) TrackMessageSent(length int) {
	t.mu.Lock()
	t.session.MessagesSent++
	count := t.session.MessagesSent
	t.mu.Unlock()
	t.TrackEvent(EventMessageSent, map[string]any{"messageLength": length, "messageCount": count})
}

func (t *AnalyticsTracker) TrackQuickAction(action string) {
	t.mu.Lock()
	t.session.QuickActionsUsed = append(t.session.QuickActionsUsed, action)
	t.mu.Unlock()
	t.TrackEvent(EventQuickAction, map[string]any{"action": action})
}

func (t *AnalyticsTracker) TrackExternalChat(platform string) {
	t.mu.Lock()
	t.session.ExternalChatClicks = append(t.session.ExternalChatClicks, platform)
	t.addConversionLocked("external_chat", map[string]any{"platform": platform}, analytics.ValueExternalChat)
	t.mu.Unlock()
	t.TrackEvent(EventExternalChat, map[string]any{"platform": platform})
}

func (t *AnalyticsTracker) TrackFormSubmission(formType string, data map[string]any) {
	t.mu.Lock()
	t.session.FormsSubmitted++
	t.addConversionLocked("form_submission", withKey(data, "formType", formType), analytics.ValueFormSubmission)
	t.mu.Unlock()
	t.TrackEvent(EventFormSubmission, withKey(data, "formType", formType))
}

func (t *AnalyticsTracker) TrackQuoteRequest(data map[string]any) {
	t.mu.Lock()
	t.addConversionLocked("quote_request", data, analytics.ValueQuoteRequest)
	t.mu.Unlock()
	t.TrackEvent(EventQuoteRequest, data)
}

func (t *AnalyticsTracker) TrackFileUpload(filename string, size int64) {
	t.mu.Lock()
	t.session.FilesUploaded++
	t.mu.Unlock()
	t.TrackEvent(EventFileUpload, map[string]any{"filename": filename, "size": size})
}

func (t *AnalyticsTracker) TrackVoiceMessage(transcribed bool) {
	t.mu.Lock()
	t.session.VoiceMessagesSent++
	t.mu.Unlock()
	t.TrackEvent(EventVoiceMessage, map[string]any{"transcribed": transcribed})
}

func (t *AnalyticsTracker) addConversionLocked(eventType string, data map[string]any, value int) {
	t.session.ConversionEvents = append(t.session.ConversionEvents, analytics.ConversionEvent{
		EventType: eventType,
		Timestamp: t.now(),
		Data:      copyData(data),
		Value:     value,
	})
}

// TrackHeatmap buffers a point and flushes the batch once it is full.
func (t *AnalyticsTracker) TrackHeatmap(point analytics.HeatmapPoint) {
	t.mu.Lock()
	if point.Timestamp.IsZero() {
		point.Timestamp = t.now()
	}
	t.heatmap = append(t.heatmap, point)
	if len(t.heatmap) < t.heatmapFlush {
		t.mu.Unlock()
		return
	}
	batch := t.heatmap
	t.heatmap = nil
	sessionID := t.session.SessionID
	t.mu.Unlock()

	if t.flusher == nil {
		return
	}
	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		if err := t.flusher(context.Background(), sessionID, batch); err != nil {
			t.logger.Analytics().Warn("Heatmap flush failed", "points", len(batch), "error", err.Error())
		}
	}()
}

// HeatmapBuffered returns the number of points waiting for the next flush.
func (t *AnalyticsTracker) HeatmapBuffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.heatmap)
}

// EndSession stamps the end time once and posts the session summary.
func (t *AnalyticsTracker) EndSession() analytics.Session {
	t.mu.Lock()
	if t.session.EndTime == nil {
		end := t.now()
		t.session.EndTime = &end
	}
	s := t.session.Clone()
	t.mu.Unlock()

	t.TrackEvent(EventSessionEnd, map[string]any{
		"duration":          s.EndTime.Sub(s.StartTime).Milliseconds(),
		"messagesSent":      s.MessagesSent,
		"formsSubmitted":    s.FormsSubmitted,
		"filesUploaded":     s.FilesUploaded,
		"voiceMessagesSent": s.VoiceMessagesSent,
		"quickActionsUsed":  s.QuickActionsUsed,
		"leadScore":         s.LeadScore(),
	})
	return s
}

// Session returns a copy of the session record.
func (t *AnalyticsTracker) Session() analytics.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Clone()
}

func (t *AnalyticsTracker) LeadScore() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.LeadScore()
}

// NewHeatmapPoster returns a flusher posting batches to endpoint.
func NewHeatmapPoster(endpoint string, doer integrations.Doer) HeatmapFlusher {
	return func(ctx context.Context, sessionID string, points []analytics.HeatmapPoint) error {
		return integrations.PostJSON(ctx, doer, endpoint, nil, map[string]any{
			"sessionId": sessionID,
			"points":    points,
		})
	}
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	return out
}

func withKey(data map[string]any, key string, value any) map[string]any {
	out := copyData(data)
	out[key] = value
	return out
}
