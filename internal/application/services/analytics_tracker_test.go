package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackEventReachesEverySinkDespiteFailures(t *testing.T) {
	good := &recordingSink{name: "good"}
	failing := &recordingSink{name: "failing", err: errBroken}
	exploding := &recordingSink{name: "exploding", panics: true}

	tracker := NewAnalyticsTracker("session_a", analytics.DeviceInfo{UserAgent: "test-agent"}, nil,
		[]analytics.Sink{failing, exploding, good}, 0, nil, logging.NewDiscardLogger())

	tracker.TrackEvent("custom", map[string]any{"k": "v"})
	tracker.TrackChatOpen()
	tracker.Wait()

	assert.ElementsMatch(t, []string{"custom", EventChatOpen}, good.names())
	assert.ElementsMatch(t, []string{"custom", EventChatOpen}, failing.names())

	good.mu.Lock()
	defer good.mu.Unlock()
	for _, e := range good.events {
		assert.Equal(t, "session_a", e.SessionID)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "test-agent", e.Data["userAgent"])
	}
}

func TestConversionHelpersScoreLead(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	tracker := NewAnalyticsTracker("session_a", analytics.DeviceInfo{}, nil, []analytics.Sink{sink}, 0, nil, logging.NewDiscardLogger())

	tracker.TrackExternalChat("whatsapp")
	tracker.TrackFormSubmission("contact", map[string]any{"budget": "5k"})
	tracker.TrackQuoteRequest(map[string]any{"budget": "5k"})
	tracker.TrackMessageSent(12)
	tracker.TrackQuickAction("Get pricing")
	tracker.TrackFileUpload("brief.pdf", 10)
	tracker.TrackVoiceMessage(true)
	tracker.Wait()

	assert.Equal(t, 160, tracker.LeadScore())
	s := tracker.Session()
	assert.Equal(t, 1, s.MessagesSent)
	assert.Equal(t, 1, s.FormsSubmitted)
	assert.Equal(t, 1, s.FilesUploaded)
	assert.Equal(t, 1, s.VoiceMessagesSent)
	assert.Equal(t, []string{"Get pricing"}, s.QuickActionsUsed)
	assert.Equal(t, []string{"whatsapp"}, s.ExternalChatClicks)
	require.Len(t, s.ConversionEvents, 3)
	assert.Equal(t, "contact", s.ConversionEvents[1].Data["formType"])

	assert.ElementsMatch(t, []string{
		EventExternalChat, EventFormSubmission, EventQuoteRequest, EventMessageSent,
		EventQuickAction, EventFileUpload, EventVoiceMessage,
	}, sink.names())
}

func TestHeatmapFlushesAtThreshold(t *testing.T) {
	var mu sync.Mutex
	var batches [][]analytics.HeatmapPoint
	flusher := func(_ context.Context, sessionID string, points []analytics.HeatmapPoint) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "session_a", sessionID)
		batches = append(batches, points)
		return nil
	}
	tracker := NewAnalyticsTracker("session_a", analytics.DeviceInfo{}, nil, nil, 10, flusher, logging.NewDiscardLogger())

	for i := 0; i < 9; i++ {
		tracker.TrackHeatmap(analytics.HeatmapPoint{X: i, Y: i, Kind: "click", Page: "/"})
	}
	tracker.Wait()
	assert.Equal(t, 9, tracker.HeatmapBuffered())
	mu.Lock()
	assert.Empty(t, batches)
	mu.Unlock()

	tracker.TrackHeatmap(analytics.HeatmapPoint{X: 9, Y: 9, Kind: "hover", Page: "/"})
	tracker.Wait()
	assert.Equal(t, 0, tracker.HeatmapBuffered())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 10)
	assert.False(t, batches[0][0].Timestamp.IsZero())
}

func TestEndSessionStampsOnce(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	tracker := NewAnalyticsTracker("session_a", analytics.DeviceInfo{}, nil, []analytics.Sink{sink}, 0, nil, logging.NewDiscardLogger())

	first := tracker.EndSession()
	second := tracker.EndSession()
	tracker.Wait()

	require.NotNil(t, first.EndTime)
	require.NotNil(t, second.EndTime)
	assert.True(t, first.EndTime.Equal(*second.EndTime))
	assert.Equal(t, []string{EventSessionEnd, EventSessionEnd}, sink.names())
}

func TestAnalyticsServiceKeepsLocalRingBuffer(t *testing.T) {
	ctx := context.Background()
	shared := &recordingSink{name: "shared"}
	svc := NewAnalyticsService(storage.NewMemoryStore(), AnalyticsOptions{SharedSinks: []analytics.Sink{shared}, EventBufferSize: 3}, logging.NewDiscardLogger())
	defer svc.Close()

	tracker := svc.StartSession("session_a", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", analytics.ClientHints{Language: "en-US"})
	assert.Same(t, tracker, svc.Tracker("session_a"))
	assert.Equal(t, "desktop", tracker.Session().DeviceInfo.DeviceType)

	for i := 0; i < 4; i++ {
		tracker.TrackChatOpen()
		tracker.Wait()
	}

	events, err := svc.RecentEvents(ctx, "session_a")
	require.NoError(t, err)
	assert.Len(t, events, 3)

	other, err := svc.RecentEvents(ctx, "session_b")
	require.NoError(t, err)
	assert.Empty(t, other)

	assert.Contains(t, shared.names(), EventSessionStart)

	summary, ok := svc.EndSession("session_a")
	require.True(t, ok)
	assert.NotNil(t, summary.EndTime)
	_, ok = svc.EndSession("session_a")
	assert.False(t, ok)
	tracker.Wait()
}

func TestRingBufferKeepsNewestEventsInOrder(t *testing.T) {
	ctx := context.Background()
	shared := &recordingSink{name: "shared"}
	svc := NewAnalyticsService(storage.NewMemoryStore(), AnalyticsOptions{SharedSinks: []analytics.Sink{shared}, EventBufferSize: 100}, logging.NewDiscardLogger())
	defer svc.Close()

	tracker := svc.StartSession("session_a", "", analytics.ClientHints{})
	for i := 0; i < 150; i++ {
		tracker.TrackEvent(fmt.Sprintf("e%03d", i), nil)
	}
	tracker.Wait()

	events, err := svc.RecentEvents(ctx, "session_a")
	require.NoError(t, err)
	want := make([]string, 0, 100)
	for i := 50; i < 150; i++ {
		want = append(want, fmt.Sprintf("e%03d", i))
	}
	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, e.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buffered events mismatch (-want +got):\n%s", diff)
	}
}
