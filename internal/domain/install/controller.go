// Package install drives the "add to home screen" banner: it holds the
// deferred platform prompt, decides when the custom banner may show, and
// remembers whether the app is already installed.
package install

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
)

// State is the install lifecycle position.
type State string

const (
	StateUninstalled    State = "uninstalled"
	StatePromptDeferred State = "prompt-deferred"
	StateAccepted       State = "accepted"
	StateDismissed      State = "dismissed"
	StateInstalled      State = "installed"
)

// Outcome is the platform's answer to a replayed prompt.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDismissed Outcome = "dismissed"
)

// keySessionDismissed lives in the session store only.
const keySessionDismissed = "pwa-banner-dismissed"

var (
	ErrNoDeferredPrompt = errors.New("install: no deferred prompt captured")
	ErrAlreadyInstalled = errors.New("install: app already installed")
)

// Prompt is the platform install prompt captured from the installable
// signal. It can be replayed once.
type Prompt interface {
	Prompt(ctx context.Context) (Outcome, error)
}

// Platform describes the visitor's browser as far as installation cares.
type Platform struct {
	Standalone bool   `json:"standalone"`
	Browser    string `json:"browser"`
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	State         State         `json:"state"`
	BannerVisible bool          `json:"bannerVisible"`
	CanPrompt     bool          `json:"canPrompt"`
	Instructions  *Instructions `json:"instructions,omitempty"`
}

// Controller is safe for concurrent use.
type Controller struct {
	mu            sync.Mutex
	state         State
	deferred      Prompt
	everCaptured  bool
	bannerVisible bool
	bannerTimer   *time.Timer
	bannerDelay   time.Duration
	platform      Platform
	durable       storage.Store
	session       storage.Store
	onChange      func(Snapshot)
}

// NewController builds a controller. durable survives across visits, session
// is dropped with the visitor session.
func NewController(platform Platform, durable, session storage.Store, bannerDelay time.Duration) *Controller {
	return &Controller{
		state:       StateUninstalled,
		bannerDelay: bannerDelay,
		platform:    platform,
		durable:     durable,
		session:     session,
	}
}

// OnChange registers a callback fired after every visible change.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Init moves straight to Installed when the platform runs standalone or the
// installed flag was stored on an earlier visit.
func (c *Controller) Init(ctx context.Context) error {
	installed := c.platform.Standalone
	if !installed {
		var flag bool
		err := storage.GetJSON(ctx, c.durable, storage.KeyInstalled, &flag)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to read installed flag: %w", err)
		}
		installed = flag
	}

	c.mu.Lock()
	if installed {
		c.state = StateInstalled
	}
	c.mu.Unlock()
	return nil
}

// CapturePrompt stores the platform prompt without showing it and schedules
// the custom banner.
func (c *Controller) CapturePrompt(ctx context.Context, p Prompt) {
	c.mu.Lock()
	if c.state == StateInstalled {
		c.mu.Unlock()
		return
	}
	c.deferred = p
	c.everCaptured = true
	c.state = StatePromptDeferred
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
	}
	bannerCtx := context.WithoutCancel(ctx)
	c.bannerTimer = time.AfterFunc(c.bannerDelay, func() { c.showBanner(bannerCtx) })
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) showBanner(ctx context.Context) {
	dismissed := c.sessionDismissed(ctx)

	c.mu.Lock()
	if c.state == StateInstalled || dismissed || c.deferred == nil {
		c.mu.Unlock()
		return
	}
	c.bannerVisible = true
	c.mu.Unlock()
	c.notify()
}

// Install replays the deferred prompt and waits for the platform's answer.
// The prompt is consumed either way.
func (c *Controller) Install(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state == StateInstalled {
		c.mu.Unlock()
		return "", ErrAlreadyInstalled
	}
	p := c.deferred
	if p == nil {
		c.mu.Unlock()
		return "", ErrNoDeferredPrompt
	}
	c.deferred = nil
	c.bannerVisible = false
	c.mu.Unlock()

	outcome, err := p.Prompt(ctx)
	if err != nil {
		c.notify()
		return "", fmt.Errorf("install prompt failed: %w", err)
	}

	c.mu.Lock()
	if c.state != StateInstalled {
		if outcome == OutcomeAccepted {
			c.state = StateAccepted
		} else {
			c.state = StateDismissed
		}
	}
	c.mu.Unlock()
	c.notify()
	return outcome, nil
}

// MarkInstalled handles the platform's "installed" signal.
func (c *Controller) MarkInstalled(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateInstalled
	c.bannerVisible = false
	c.deferred = nil
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
	}
	c.mu.Unlock()
	c.notify()

	if err := storage.SetJSON(ctx, c.durable, storage.KeyInstalled, true); err != nil {
		return fmt.Errorf("failed to persist installed flag: %w", err)
	}
	return nil
}

// DismissBanner hides the custom banner for the rest of this session.
func (c *Controller) DismissBanner(ctx context.Context) error {
	c.mu.Lock()
	c.bannerVisible = false
	c.mu.Unlock()
	c.notify()
	return storage.SetJSON(ctx, c.session, keySessionDismissed, true)
}

// BannerVisible reports whether the custom banner is showing.
func (c *Controller) BannerVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bannerVisible
}

// State returns the lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FallbackInstructions returns manual per-browser steps when no platform
// prompt was ever captured (for example iOS Safari).
func (c *Controller) FallbackInstructions() (Instructions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.everCaptured || c.state == StateInstalled {
		return Instructions{}, false
	}
	return InstructionsFor(c.platform.Browser), true
}

// Snapshot returns the current visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         c.state,
		BannerVisible: c.bannerVisible,
		CanPrompt:     c.deferred != nil,
	}
	if !c.everCaptured && c.state != StateInstalled {
		ins := InstructionsFor(c.platform.Browser)
		snap.Instructions = &ins
	}
	return snap
}

// Close stops the pending banner timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
	}
}

func (c *Controller) sessionDismissed(ctx context.Context) bool {
	var dismissed bool
	if err := storage.GetJSON(ctx, c.session, keySessionDismissed, &dismissed); err != nil {
		return false
	}
	return dismissed
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
