// Package offline is the site's service worker rendered server side: it
// precaches the app shell, serves GETs cache-first, write-backs allow-listed
// responses into a dynamic bucket and answers with fallbacks when the origin
// is unreachable.
package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"golang.org/x/sync/errgroup"
)

// precacheConcurrency bounds parallel manifest fetches during Install.
const precacheConcurrency = 4

// ErrPrecacheFailed is returned by Install when any manifest URL could not be fetched.
var ErrPrecacheFailed = errors.New("offline: precache failed")

// Doer performs outbound requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes one cache version.
type Config struct {
	Version       string
	Origin        string
	Manifest      []string
	AllowPatterns []string
	OfflinePage   string
}

// StaticBucket is the precache bucket name for this version.
func (c Config) StaticBucket() string { return "static-" + c.Version }

// DynamicBucket is the runtime cache bucket name for this version.
func (c Config) DynamicBucket() string { return "dynamic-" + c.Version }

// Manager implements install, activate and fetch for one cache version.
type Manager struct {
	cfg     Config
	origin  *url.URL
	allow   []*regexp.Regexp
	storage Storage
	client  Doer
	logger  *logging.ChanneledLogger

	writeMu sync.Mutex
	retired bool
	writes  sync.WaitGroup
}

// NewManager validates cfg and compiles its allow-list.
func NewManager(cfg Config, storage Storage, client Doer, logger *logging.ChanneledLogger) (*Manager, error) {
	if cfg.Version == "" {
		return nil, fmt.Errorf("cache version is required")
	}
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid shell origin %q", cfg.Origin)
	}

	allow := make([]*regexp.Regexp, 0, len(cfg.AllowPatterns))
	for _, p := range cfg.AllowPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid cache allow pattern %q: %w", p, err)
		}
		allow = append(allow, re)
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Manager{
		cfg:     cfg,
		origin:  origin,
		allow:   allow,
		storage: storage,
		client:  client,
		logger:  logger,
	}, nil
}

func (m *Manager) Version() string { return m.cfg.Version }

// Resolve turns a manifest path into an absolute URL on the shell origin.
func (m *Manager) Resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return m.origin.ResolveReference(ref).String()
}

// Install fetches every manifest URL and stores them in the static bucket.
// Nothing is written unless every fetch succeeded with a 200.
func (m *Manager) Install(ctx context.Context) error {
	start := time.Now()
	entries := make([]Entry, len(m.cfg.Manifest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precacheConcurrency)
	for i, path := range m.cfg.Manifest {
		target := m.Resolve(path)
		g.Go(func() error {
			entry, err := m.fetchEntry(gctx, target)
			if err != nil {
				m.logger.Cache().Error("Precache failed", "version", m.cfg.Version, "url", target, "error", err.Error())
				return fmt.Errorf("%w: %s: %v", ErrPrecacheFailed, target, err)
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := m.storage.PutAll(ctx, m.cfg.StaticBucket(), entries); err != nil {
		m.logger.Cache().Error("Precache write failed", "version", m.cfg.Version, "error", err.Error())
		return fmt.Errorf("%w: %v", ErrPrecacheFailed, err)
	}

	m.logger.Cache().Info("Precache complete", "version", m.cfg.Version, "entries", len(entries), "duration", time.Since(start))
	return nil
}

func (m *Manager) fetchEntry(ctx context.Context, target string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Entry{}, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, err
	}
	return Entry{URL: target, Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body, StoredAt: time.Now().UTC()}, nil
}

// Activate deletes every bucket other than this version's static and dynamic
// buckets. Deletion is best-effort: failures are logged and the rest proceed.
// It returns the names that were removed.
func (m *Manager) Activate(ctx context.Context) ([]string, error) {
	names, err := m.storage.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache buckets: %w", err)
	}

	var removed []string
	for _, name := range names {
		if name == m.cfg.StaticBucket() || name == m.cfg.DynamicBucket() {
			continue
		}
		if err := m.storage.Delete(ctx, name); err != nil {
			m.logger.Cache().Warn("Failed to delete stale cache bucket", "bucket", name, "error", err.Error())
			continue
		}
		removed = append(removed, name)
	}

	m.logger.Cache().Info("Cache version activated", "version", m.cfg.Version, "removedBuckets", removed)
	return removed, nil
}

// Fetch serves req the way the worker's fetch handler does. It never returns
// an error for GET http(s) requests: network failures become fallbacks.
func (m *Manager) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || (req.URL.Scheme != "http" && req.URL.Scheme != "https") {
		return m.client.Do(req)
	}

	key := req.URL.String()
	start := time.Now()
	entry, hit, err := m.storage.Match(ctx, key)
	if err != nil {
		m.logger.Cache().Warn("Cache lookup failed", "url", key, "error", err.Error())
	}
	m.logger.LogCacheOperation("match", key, hit, time.Since(start))
	if hit {
		return entry.Response(req), nil
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Cache().Debug("Network fetch failed, serving fallback", "url", key, "error", err.Error())
		return m.fallback(ctx, req), nil
	}

	if !m.cacheable(req, resp) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		m.logger.Cache().Debug("Response body read failed, serving fallback", "url", key, "error", err.Error())
		return m.fallback(ctx, req), nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	clone := Entry{URL: key, Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body, StoredAt: time.Now().UTC()}
	m.writeMu.Lock()
	if m.retired {
		m.writeMu.Unlock()
		return resp, nil
	}
	m.writes.Add(1)
	m.writeMu.Unlock()
	go func() {
		defer m.writes.Done()
		if err := m.storage.Put(context.WithoutCancel(ctx), m.cfg.DynamicBucket(), clone); err != nil {
			m.logger.Cache().Error("Dynamic cache write failed", "url", key, "error", err.Error())
		}
	}()
	return resp, nil
}

// Wait blocks until every pending dynamic cache write has finished.
func (m *Manager) Wait() {
	m.writes.Wait()
}

// Retire stops new dynamic writes and waits for the pending ones, so a
// replaced version cannot recreate its bucket after cleanup.
func (m *Manager) Retire() {
	m.writeMu.Lock()
	m.retired = true
	m.writeMu.Unlock()
	m.writes.Wait()
}

// Allowed reports whether url may be written to the dynamic bucket.
func (m *Manager) Allowed(rawURL string) bool {
	for _, re := range m.allow {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// cacheable: a 200 that is either same-origin or explicitly shared via CORS,
// for a URL on the allow-list.
func (m *Manager) cacheable(req *http.Request, resp *http.Response) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	sameOrigin := strings.EqualFold(req.URL.Scheme, m.origin.Scheme) && strings.EqualFold(req.URL.Host, m.origin.Host)
	if !sameOrigin && resp.Header.Get("Access-Control-Allow-Origin") == "" {
		return false
	}
	return m.Allowed(req.URL.String())
}

func (m *Manager) fallback(ctx context.Context, req *http.Request) *http.Response {
	switch destination(req) {
	case "document":
		offline := m.Resolve(m.cfg.OfflinePage)
		entry, ok, err := m.storage.Match(ctx, offline)
		if err == nil && ok {
			return entry.Response(req)
		}
		m.logger.Cache().Warn("Offline page not precached", "url", offline)
	case "image":
		return placeholderImage(req)
	}
	return serviceUnavailable(req)
}

// destination approximates Request.destination from fetch metadata headers.
func destination(req *http.Request) string {
	if d := req.Header.Get("Sec-Fetch-Dest"); d != "" {
		return d
	}
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return "document"
	}
	accept := req.Header.Get("Accept")
	switch {
	case strings.HasPrefix(accept, "text/html"):
		return "document"
	case strings.HasPrefix(accept, "image/"):
		return "image"
	}
	return ""
}
