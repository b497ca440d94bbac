package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
)

// MessageSkipWaiting is the page -> worker message that activates a waiting worker.
const MessageSkipWaiting = "SKIP_WAITING"

var (
	ErrInstallInProgress = errors.New("offline: install already in progress for this version")
	ErrNoWaitingWorker   = errors.New("offline: no waiting worker")
	ErrUnknownMessage    = errors.New("offline: unknown worker message")
)

// WorkerState follows the service worker lifecycle.
type WorkerState string

const (
	WorkerInstalled WorkerState = "installed"
	WorkerActivated WorkerState = "activated"
	WorkerRedundant WorkerState = "redundant"
)

// WorkerInfo describes a registered worker version.
type WorkerInfo struct {
	Version string      `json:"version"`
	State   WorkerState `json:"state"`
}

// Status is the registration as the page sees it.
type Status struct {
	Active  *WorkerInfo `json:"active,omitempty"`
	Waiting *WorkerInfo `json:"waiting,omitempty"`
}

// ControllerChangeFunc is called after a new worker claims the clients.
type ControllerChangeFunc func(version string)

type worker struct {
	manager *Manager
	state   WorkerState
}

// Registry tracks the active and waiting worker versions. A failed install
// leaves the previous active version in control.
type Registry struct {
	mu           sync.RWMutex
	active       *worker
	waiting      *worker
	storage      Storage
	client       Doer
	logger       *logging.ChanneledLogger
	lock         *caching.InstallLock
	autoActivate bool
	listeners    []ControllerChangeFunc
}

// NewRegistry creates an empty registration. When autoActivate is set a
// successful install skips waiting and activates immediately.
func NewRegistry(storage Storage, client Doer, logger *logging.ChanneledLogger, autoActivate bool) *Registry {
	return &Registry{
		storage:      storage,
		client:       client,
		logger:       logger,
		lock:         caching.NewInstallLock(),
		autoActivate: autoActivate,
	}
}

// OnControllerChange registers fn for every clients claim.
func (r *Registry) OnControllerChange(fn ControllerChangeFunc) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Deploy installs cfg as a new worker version.
func (r *Registry) Deploy(ctx context.Context, cfg Config) (Status, error) {
	if !r.lock.TryLock(cfg.Version) {
		return r.Status(), ErrInstallInProgress
	}
	defer r.lock.Unlock(cfg.Version)

	m, err := NewManager(cfg, r.storage, r.client, r.logger)
	if err != nil {
		return r.Status(), err
	}
	if err := m.Install(ctx); err != nil {
		r.logger.Cache().Warn("Install failed, previous worker stays in control", "version", cfg.Version, "error", err.Error())
		return r.Status(), err
	}

	r.mu.Lock()
	if r.waiting != nil {
		r.waiting.state = WorkerRedundant
	}
	r.waiting = &worker{manager: m, state: WorkerInstalled}
	r.mu.Unlock()

	if r.autoActivate {
		if err := r.activateWaiting(ctx); err != nil {
			return r.Status(), err
		}
	}
	return r.Status(), nil
}

// PostMessage handles a message from the page.
func (r *Registry) PostMessage(ctx context.Context, messageType string) error {
	if messageType != MessageSkipWaiting {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, messageType)
	}
	return r.activateWaiting(ctx)
}

func (r *Registry) activateWaiting(ctx context.Context) error {
	r.mu.Lock()
	w := r.waiting
	if w == nil {
		r.mu.Unlock()
		return ErrNoWaitingWorker
	}
	r.waiting = nil
	outgoing := r.active
	r.mu.Unlock()

	if outgoing != nil {
		outgoing.manager.Retire()
	}
	if _, err := w.manager.Activate(ctx); err != nil {
		r.logger.Cache().Warn("Activation cleanup failed", "version", w.manager.Version(), "error", err.Error())
	}

	r.mu.Lock()
	if r.active != nil {
		r.active.state = WorkerRedundant
	}
	w.state = WorkerActivated
	r.active = w
	listeners := append([]ControllerChangeFunc(nil), r.listeners...)
	r.mu.Unlock()

	// clients.claim()
	for _, fn := range listeners {
		fn(w.manager.Version())
	}
	return nil
}

// Active returns the manager in control, or nil before the first activation.
func (r *Registry) Active() *Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil
	}
	return r.active.manager
}

func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Status
	if r.active != nil {
		s.Active = &WorkerInfo{Version: r.active.manager.Version(), State: r.active.state}
	}
	if r.waiting != nil {
		s.Waiting = &WorkerInfo{Version: r.waiting.manager.Version(), State: r.waiting.state}
	}
	return s
}

// Wait drains pending dynamic cache writes of the active worker.
func (r *Registry) Wait() {
	if m := r.Active(); m != nil {
		m.Wait()
	}
}
