package services

import (
	"context"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/install"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
)

// relayPrompt replays the platform prompt on the visitor's page over the
// realtime hub and waits for the page to report the outcome.
type relayPrompt struct {
	sessionID string
	publisher messaging.Publisher
	outcomes  chan install.Outcome

	mu      sync.Mutex
	waiting bool
}

func newRelayPrompt(sessionID string, publisher messaging.Publisher) *relayPrompt {
	return &relayPrompt{sessionID: sessionID, publisher: publisher, outcomes: make(chan install.Outcome, 1)}
}

func (p *relayPrompt) Prompt(ctx context.Context) (install.Outcome, error) {
	p.mu.Lock()
	p.waiting = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.waiting = false
		p.mu.Unlock()
	}()

	p.publisher.SendToSession(p.sessionID, messaging.Event{Type: messaging.EventInstallPrompt})
	select {
	case o := <-p.outcomes:
		return o, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// answer hands o to the waiting Prompt. The buffer holds an answer that
// arrives before Prompt reaches its select.
func (p *relayPrompt) answer(o install.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.waiting {
		return ErrNoPendingPrompt
	}
	select {
	case p.outcomes <- o:
		return nil
	default:
		return ErrNoPendingPrompt
	}
}

type installSession struct {
	controller *install.Controller
	prompt     *relayPrompt
	lastSeen   time.Time
}

// InstallService keeps one install controller per visitor session. Every page
// load starts a fresh controller, which also clears the session dismissal.
type InstallService struct {
	mu          sync.Mutex
	sessions    map[string]*installSession
	store       storage.Store
	publisher   messaging.Publisher
	bannerDelay time.Duration
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

func NewInstallService(store storage.Store, publisher messaging.Publisher, bannerDelay time.Duration, logger *logging.ChanneledLogger) *InstallService {
	return &InstallService{
		sessions:    make(map[string]*installSession),
		store:       store,
		publisher:   publisher,
		bannerDelay: bannerDelay,
		logger:      logger,
		now:         time.Now,
	}
}

// Init starts the controller for a page load.
func (s *InstallService) Init(ctx context.Context, sessionID string, platform install.Platform) (install.Snapshot, error) {
	c := install.NewController(platform, storage.NewScoped(s.store, sessionID), storage.NewMemoryStore(), s.bannerDelay)
	if err := c.Init(ctx); err != nil {
		return install.Snapshot{}, err
	}
	c.OnChange(func(snap install.Snapshot) {
		s.publisher.SendToSession(sessionID, messaging.Event{Type: messaging.EventInstallState, Data: snap})
	})

	s.mu.Lock()
	old := s.sessions[sessionID]
	s.sessions[sessionID] = &installSession{
		controller: c,
		prompt:     newRelayPrompt(sessionID, s.publisher),
		lastSeen:   s.now(),
	}
	s.mu.Unlock()
	if old != nil {
		old.controller.Close()
	}

	snap := c.Snapshot()
	s.logger.WithSession(logging.ChannelPWA, sessionID).Debug("Install controller initialized",
		"state", string(snap.State), "browser", platform.Browser)
	return snap, nil
}

// Installable handles the platform's installable signal.
func (s *InstallService) Installable(ctx context.Context, sessionID string) (install.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return install.Snapshot{}, err
	}
	sess.controller.CapturePrompt(ctx, sess.prompt)
	return sess.controller.Snapshot(), nil
}

// Install replays the deferred prompt and blocks until ReportOutcome or ctx ends.
func (s *InstallService) Install(ctx context.Context, sessionID string) (install.Outcome, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}
	outcome, err := sess.controller.Install(ctx)
	if err != nil {
		return "", err
	}
	s.logger.WithSession(logging.ChannelPWA, sessionID).Info("Install prompt answered", "outcome", string(outcome))
	return outcome, nil
}

// ReportOutcome delivers the page's answer to a waiting Install call.
func (s *InstallService) ReportOutcome(sessionID string, outcome install.Outcome) error {
	if outcome != install.OutcomeAccepted && outcome != install.OutcomeDismissed {
		return ErrInvalidOutcome
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return sess.prompt.answer(outcome)
}

func (s *InstallService) MarkInstalled(ctx context.Context, sessionID string) (install.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return install.Snapshot{}, err
	}
	if err := sess.controller.MarkInstalled(ctx); err != nil {
		s.logger.WithSession(logging.ChannelPWA, sessionID).Error("Failed to persist installed flag", "error", err.Error())
	}
	return sess.controller.Snapshot(), nil
}

func (s *InstallService) Dismiss(ctx context.Context, sessionID string) (install.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return install.Snapshot{}, err
	}
	if err := sess.controller.DismissBanner(ctx); err != nil {
		return install.Snapshot{}, err
	}
	return sess.controller.Snapshot(), nil
}

func (s *InstallService) Snapshot(sessionID string) (install.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return install.Snapshot{}, err
	}
	return sess.controller.Snapshot(), nil
}

func (s *InstallService) session(sessionID string) (*installSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	sess.lastSeen = s.now()
	return sess, nil
}

// Evict closes every controller not used for idle and returns how many went.
func (s *InstallService) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []*installSession

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.controller.Close()
	}
	return len(stale)
}

// Close stops every banner timer.
func (s *InstallService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*installSession)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.controller.Close()
	}
}
