package services

import (
	"context"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/chat"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
)

// TrackerSource resolves the analytics tracker of a session.
type TrackerSource interface {
	Tracker(sessionID string) *AnalyticsTracker
}

// sessionTracker resolves the session's tracker on every call, so a chat
// outliving an ended analytics session reports to its successor.
type sessionTracker struct {
	source    TrackerSource
	sessionID string
}

func (s sessionTracker) TrackChatOpen() { s.source.Tracker(s.sessionID).TrackChatOpen() }
func (s sessionTracker) TrackChatClose() { s.source.Tracker(s.sessionID).TrackChatClose() }
func (s sessionTracker) TrackMessageSent(length int) {
	s.source.Tracker(s.sessionID).TrackMessageSent(length)
}
func (s sessionTracker) TrackQuickAction(action string) {
	s.source.Tracker(s.sessionID).TrackQuickAction(action)
}
func (s sessionTracker) TrackFileUpload(filename string, size int64) {
	s.source.Tracker(s.sessionID).TrackFileUpload(filename, size)
}
func (s sessionTracker) TrackVoiceMessage(transcribed bool) {
	s.source.Tracker(s.sessionID).TrackVoiceMessage(transcribed)
}

type mountedChat struct {
	controller *ChatController
	lastSeen   time.Time
}

// ChatService keeps one mounted chat controller per visitor session and
// pushes every state change to that session's open pages. Idle controllers
// are dropped by Evict.
type ChatService struct {
	mu          sync.Mutex
	controllers map[string]*mountedChat
	store       storage.Store
	trackers    TrackerSource
	publisher   messaging.Publisher
	opts        ChatOptions
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

func NewChatService(store storage.Store, trackers TrackerSource, publisher messaging.Publisher, opts ChatOptions, logger *logging.ChanneledLogger) *ChatService {
	return &ChatService{
		controllers: make(map[string]*mountedChat),
		store:       store,
		trackers:    trackers,
		publisher:   publisher,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// Session returns the mounted controller for sessionID, creating it on first use.
func (s *ChatService) Session(ctx context.Context, sessionID string) *ChatController {
	s.mu.Lock()
	if m, ok := s.controllers[sessionID]; ok {
		m.lastSeen = s.now()
		s.mu.Unlock()
		return m.controller
	}
	tracker := sessionTracker{source: s.trackers, sessionID: sessionID}
	c := NewChatController(sessionID, storage.NewScoped(s.store, sessionID), tracker, s.opts, s.logger)
	s.controllers[sessionID] = &mountedChat{controller: c, lastSeen: s.now()}
	s.mu.Unlock()

	if s.publisher != nil {
		c.OnChange(func(state chat.State) {
			s.publisher.SendToSession(sessionID, messaging.Event{Type: messaging.EventChatState, Data: state})
		})
	}
	c.Mount(ctx)
	s.logger.WithSession(logging.ChannelChat, sessionID).Debug("Chat session mounted", "messages", len(c.State().Messages))
	return c
}

// VoiceEnabled reports whether voice messages can be transcribed.
func (s *ChatService) VoiceEnabled() bool {
	return s.opts.Transcriber != nil
}

// Drop closes and forgets the controller of sessionID. Persisted history stays.
func (s *ChatService) Drop(sessionID string) {
	s.mu.Lock()
	m, ok := s.controllers[sessionID]
	delete(s.controllers, sessionID)
	s.mu.Unlock()
	if ok {
		m.controller.Close()
	}
}

// Evict drops every controller not used for idle and returns how many went.
func (s *ChatService) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []*ChatController

	s.mu.Lock()
	for id, m := range s.controllers {
		if m.lastSeen.Before(cutoff) {
			stale = append(stale, m.controller)
			delete(s.controllers, id)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Mounted is the number of live controllers.
func (s *ChatService) Mounted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

// Close cancels every pending reply.
func (s *ChatService) Close() {
	s.mu.Lock()
	controllers := s.controllers
	s.controllers = make(map[string]*mountedChat)
	s.mu.Unlock()
	for _, m := range controllers {
		m.controller.Close()
	}
}
