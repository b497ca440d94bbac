package services

import (
	"context"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations/tracking"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
)

// AnalyticsOptions configures the sinks every session shares.
type AnalyticsOptions struct {
	SharedSinks      []analytics.Sink
	EventBufferSize  int
	HeatmapFlushSize int
	HeatmapFlusher   HeatmapFlusher
}

// AnalyticsService owns one tracker per visitor session.
type AnalyticsService struct {
	mu       sync.Mutex
	trackers map[string]*AnalyticsTracker
	lastSeen map[string]time.Time
	onEnd    []func(sessionID string)
	draining sync.WaitGroup
	store    storage.Store
	opts     AnalyticsOptions
	logger   *logging.ChanneledLogger
	now      func() time.Time
}

// NewAnalyticsService creates the registry. store backs the per-visitor ring buffer.
func NewAnalyticsService(store storage.Store, opts AnalyticsOptions, logger *logging.ChanneledLogger) *AnalyticsService {
	return &AnalyticsService{
		trackers: make(map[string]*AnalyticsTracker),
		lastSeen: make(map[string]time.Time),
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// OnSessionEnd registers fn to run after a session is ended or evicted.
func (s *AnalyticsService) OnSessionEnd(fn func(sessionID string)) {
	s.mu.Lock()
	s.onEnd = append(s.onEnd, fn)
	s.mu.Unlock()
}

// StartSession creates the tracker for sessionID, or returns the existing one.
func (s *AnalyticsService) StartSession(sessionID, userAgent string, hints analytics.ClientHints) *AnalyticsTracker {
	s.mu.Lock()
	s.lastSeen[sessionID] = s.now()
	if t, ok := s.trackers[sessionID]; ok {
		s.mu.Unlock()
		return t
	}

	local := tracking.NewRingBuffer(storage.NewScoped(s.store, sessionID), s.opts.EventBufferSize)
	device := analytics.DeriveDeviceInfo(userAgent, hints)
	t := NewAnalyticsTracker(sessionID, device, local, s.opts.SharedSinks, s.opts.HeatmapFlushSize, s.opts.HeatmapFlusher, s.logger)
	s.trackers[sessionID] = t
	s.mu.Unlock()

	s.logger.WithSession(logging.ChannelAnalytics, sessionID).Debug("Analytics session started", "device", device.DeviceType, "browser", device.Browser)
	t.TrackEvent(EventSessionStart, map[string]any{"deviceType": device.DeviceType, "browser": device.Browser, "os": device.OS})
	return t
}

// Tracker returns the tracker for sessionID, starting a bare session when none exists.
func (s *AnalyticsService) Tracker(sessionID string) *AnalyticsTracker {
	s.mu.Lock()
	t, ok := s.trackers[sessionID]
	if ok {
		s.lastSeen[sessionID] = s.now()
	}
	s.mu.Unlock()
	if ok {
		return t
	}
	return s.StartSession(sessionID, "", analytics.ClientHints{})
}

// EndSession finalizes and forgets the session.
func (s *AnalyticsService) EndSession(sessionID string) (analytics.Session, bool) {
	s.mu.Lock()
	t, ok := s.trackers[sessionID]
	delete(s.trackers, sessionID)
	delete(s.lastSeen, sessionID)
	hooks := s.onEnd
	s.mu.Unlock()
	if !ok {
		return analytics.Session{}, false
	}
	summary := t.EndSession()
	s.draining.Add(1)
	go func() {
		defer s.draining.Done()
		t.Wait()
	}()
	for _, fn := range hooks {
		fn(sessionID)
	}
	return summary, true
}

// Evict ends every session not seen for idle and returns how many ended.
func (s *AnalyticsService) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []string

	s.mu.Lock()
	for id, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range stale {
		if _, ok := s.EndSession(id); ok {
			n++
		}
	}
	return n
}

// Active is the number of open sessions.
func (s *AnalyticsService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackers)
}

// RecentEvents reads the visitor's local ring buffer.
func (s *AnalyticsService) RecentEvents(ctx context.Context, sessionID string) ([]analytics.Event, error) {
	rb := tracking.NewRingBuffer(storage.NewScoped(s.store, sessionID), s.opts.EventBufferSize)
	return rb.Events(ctx)
}

// Wait drains in-flight deliveries of every tracker.
func (s *AnalyticsService) Wait() {
	s.mu.Lock()
	trackers := make([]*AnalyticsTracker, 0, len(s.trackers))
	for _, t := range s.trackers {
		trackers = append(trackers, t)
	}
	s.mu.Unlock()
	for _, t := range trackers {
		t.Wait()
	}
	s.draining.Wait()
}

// Close ends every open session and waits for the final deliveries.
func (s *AnalyticsService) Close() {
	s.mu.Lock()
	trackers := s.trackers
	s.trackers = make(map[string]*AnalyticsTracker)
	s.lastSeen = make(map[string]time.Time)
	s.mu.Unlock()
	for _, t := range trackers {
		t.EndSession()
		t.Wait()
	}
	s.draining.Wait()
}
