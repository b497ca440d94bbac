package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/caching/offline"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
)

var ErrShellNotReady = errors.New("offline shell has no active worker")

// ShellService fronts the offline worker registry and announces worker and
// notification events to every connected page.
type ShellService struct {
	registry  *offline.Registry
	publisher messaging.Publisher
	base      offline.Config
	logger    *logging.ChanneledLogger
}

// NewShellService wires the registry's clients claim to a controllerchange
// broadcast. base supplies everything but the version of later deploys.
func NewShellService(registry *offline.Registry, publisher messaging.Publisher, base offline.Config, logger *logging.ChanneledLogger) *ShellService {
	s := &ShellService{registry: registry, publisher: publisher, base: base, logger: logger}
	registry.OnControllerChange(func(version string) {
		logger.Cache().Info("Worker claimed clients", "version", version)
		if publisher == nil {
			return
		}
		publisher.Broadcast(messaging.Event{Type: messaging.EventControllerChange, Data: map[string]string{"version": version}})
	})
	return s
}

// Deploy installs version, or the configured version when empty.
func (s *ShellService) Deploy(ctx context.Context, version string) (offline.Status, error) {
	cfg := s.base
	if version != "" {
		cfg.Version = version
	}
	status, err := s.registry.Deploy(ctx, cfg)
	if err != nil {
		return status, err
	}
	s.logger.Cache().Info("Worker deployed", "version", cfg.Version)
	return status, nil
}

func (s *ShellService) PostMessage(ctx context.Context, messageType string) error {
	return s.registry.PostMessage(ctx, messageType)
}

func (s *ShellService) Status() offline.Status {
	return s.registry.Status()
}

// Notify pushes a notification to every connected page.
func (s *ShellService) Notify(body string) offline.Notification {
	n := offline.NewNotification(body)
	if s.publisher == nil {
		return n
	}
	s.publisher.Broadcast(messaging.Event{Type: messaging.EventNotification, Data: n})
	return n
}

// Fetch answers a shell request through the active worker.
func (s *ShellService) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	m := s.registry.Active()
	if m == nil {
		return nil, ErrShellNotReady
	}
	return m.Fetch(ctx, req)
}

// Resolve maps a request path onto the shell origin.
func (s *ShellService) Resolve(path string) (string, error) {
	m := s.registry.Active()
	if m == nil {
		return "", ErrShellNotReady
	}
	return m.Resolve(path), nil
}

// Wait drains pending dynamic cache writes.
func (s *ShellService) Wait() {
	s.registry.Wait()
}
