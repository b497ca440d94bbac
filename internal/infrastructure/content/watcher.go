package content

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the store whenever its file is written, created or renamed
// into place, until ctx ends. The parent directory is watched so editors
// that replace the file are picked up. Rapid saves collapse into one reload.
func (s *PolicyStore) Watch(ctx context.Context, logger *logging.ChanneledLogger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create content watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Content().Info("Watching policies", "path", s.path)

	target := filepath.Clean(s.path)
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Content().Warn("Content watcher error", "error", err.Error())
		case <-debounce.C:
			if err := s.Reload(); err != nil {
				logger.Content().Error("Policy reload failed, keeping previous content", "error", err.Error())
				continue
			}
			logger.Content().Info("Policies reloaded", "count", len(s.Slugs()))
		}
	}
}
