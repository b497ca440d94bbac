package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type origin struct {
	*httptest.Server
	hits atomic.Int64
}

func newOrigin(t *testing.T) *origin {
	t.Helper()
	o := &origin{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		switch {
		case strings.HasSuffix(r.URL.Path, "/missing"):
			http.NotFound(w, r)
		case r.URL.Path == "/offline.html":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<h1>offline</h1>")
		default:
			io.WriteString(w, "body of "+r.URL.Path)
		}
	})
	o.Server = httptest.NewServer(mux)
	t.Cleanup(o.Close)
	return o
}

func testConfig(o *origin, version string) Config {
	return Config{
		Version:       version,
		Origin:        o.URL,
		Manifest:      []string{"/", "/offline.html", "/manifest.json"},
		AllowPatterns: []string{"^" + regexp.QuoteMeta(o.URL) + "/api/"},
		OfflinePage:   "/offline.html",
	}
}

func get(t *testing.T, rawURL string, headers map[string]string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestCacheHitSkipsNetwork(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	m, err := NewManager(testConfig(o, "v1"), storage, o.Client(), logging.NewDiscardLogger())
	require.NoError(t, err)

	target := o.URL + "/cached.css"
	require.NoError(t, storage.Put(context.Background(), "static-v1", Entry{
		URL: target, Status: http.StatusOK, Header: http.Header{"Content-Type": {"text/css"}}, Body: []byte("body{}"),
	}))

	resp, err := m.Fetch(context.Background(), get(t, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))
	assert.Equal(t, "body{}", readBody(t, resp))
	assert.Zero(t, o.hits.Load())
}

func TestDynamicWritesOnlyForAllowedURLs(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	m, err := NewManager(testConfig(o, "v1"), storage, o.Client(), logging.NewDiscardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for _, path := range []string{"/api/services", "/blog/post", "/missing", "/api/missing"} {
		resp, err := m.Fetch(ctx, get(t, o.URL+path, nil))
		require.NoError(t, err)
		readBody(t, resp)
	}
	m.Wait()

	stored := storage.Entries("dynamic-v1")
	assert.Equal(t, []string{o.URL + "/api/services"}, stored)
	for _, u := range stored {
		assert.True(t, m.Allowed(u))
	}

	// a second request for the cached API URL is served from the bucket
	before := o.hits.Load()
	resp, err := m.Fetch(ctx, get(t, o.URL+"/api/services", nil))
	require.NoError(t, err)
	assert.Equal(t, "body of /api/services", readBody(t, resp))
	assert.Equal(t, before, o.hits.Load())
}

func TestCrossOriginNeedsCORS(t *testing.T) {
	shell := newOrigin(t)
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/shared" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		io.WriteString(w, "font")
	}))
	defer cdn.Close()

	cfg := testConfig(shell, "v1")
	cfg.AllowPatterns = []string{"^" + regexp.QuoteMeta(cdn.URL) + "/"}
	storage := NewMemoryStorage()
	m, err := NewManager(cfg, storage, http.DefaultClient, logging.NewDiscardLogger())
	require.NoError(t, err)

	for _, path := range []string{"/opaque", "/shared"} {
		resp, err := m.Fetch(context.Background(), get(t, cdn.URL+path, nil))
		require.NoError(t, err)
		readBody(t, resp)
	}
	m.Wait()

	assert.Equal(t, []string{cdn.URL + "/shared"}, storage.Entries("dynamic-v1"))
}

func TestInstallIsAllOrNothing(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	cfg := testConfig(o, "v1")
	cfg.Manifest = append(cfg.Manifest, "/missing")
	m, err := NewManager(cfg, storage, o.Client(), logging.NewDiscardLogger())
	require.NoError(t, err)

	err = m.Install(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecacheFailed))

	keys, err := storage.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestActivateRemovesStaleBuckets(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	ctx := context.Background()
	for _, name := range []string{"static-v0", "dynamic-v0", "images"} {
		require.NoError(t, storage.Put(ctx, name, Entry{URL: o.URL + "/x", Status: 200}))
	}

	m, err := NewManager(testConfig(o, "v1"), storage, o.Client(), logging.NewDiscardLogger())
	require.NoError(t, err)
	require.NoError(t, m.Install(ctx))
	removed, err := m.Activate(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"static-v0", "dynamic-v0", "images"}, removed)

	keys, err := storage.Keys(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		assert.Contains(t, []string{"static-v1", "dynamic-v1"}, k)
	}
}

func TestFallbacksWhenOffline(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	ctx := context.Background()
	m, err := NewManager(testConfig(o, "v1"), storage, o.Client(), logging.NewDiscardLogger())
	require.NoError(t, err)
	require.NoError(t, m.Install(ctx))

	offline, err := NewManager(testConfig(o, "v1"), storage, failingDoer{}, logging.NewDiscardLogger())
	require.NoError(t, err)

	resp, err := offline.Fetch(ctx, get(t, o.URL+"/services", map[string]string{"Sec-Fetch-Dest": "document"}))
	require.NoError(t, err)
	assert.Equal(t, "<h1>offline</h1>", readBody(t, resp))

	resp, err = offline.Fetch(ctx, get(t, o.URL+"/hero.jpg", map[string]string{"Accept": "image/webp,*/*"}))
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, readBody(t, resp), "<svg")

	resp, err = offline.Fetch(ctx, get(t, o.URL+"/app.js", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, OfflineMessage, readBody(t, resp))
}

func TestNonGetPassesThrough(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	cfg := testConfig(o, "v1")
	cfg.AllowPatterns = []string{".*"}
	m, err := NewManager(cfg, storage, o.Client(), logging.NewDiscardLogger())
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, o.URL+"/api/leads", nil)
	require.NoError(t, err)
	resp, err := m.Fetch(context.Background(), req)
	require.NoError(t, err)
	readBody(t, resp)
	m.Wait()

	assert.Empty(t, storage.Entries("dynamic-v1"))
	assert.EqualValues(t, 1, o.hits.Load())
}

func TestRegistryKeepsPreviousVersionOnFailedInstall(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	ctx := context.Background()
	reg := NewRegistry(storage, o.Client(), logging.NewDiscardLogger(), true)

	var claimed []string
	reg.OnControllerChange(func(v string) { claimed = append(claimed, v) })

	_, err := reg.Deploy(ctx, testConfig(o, "v1"))
	require.NoError(t, err)
	require.NotNil(t, reg.Active())
	assert.Equal(t, "v1", reg.Active().Version())

	broken := testConfig(o, "v2")
	broken.Manifest = []string{"/missing"}
	status, err := reg.Deploy(ctx, broken)
	require.ErrorIs(t, err, ErrPrecacheFailed)
	assert.Equal(t, "v1", status.Active.Version)
	assert.Nil(t, status.Waiting)
	assert.Equal(t, []string{"v1"}, claimed)
}

func TestRegistrySkipWaiting(t *testing.T) {
	o := newOrigin(t)
	storage := NewMemoryStorage()
	ctx := context.Background()
	reg := NewRegistry(storage, o.Client(), logging.NewDiscardLogger(), false)

	status, err := reg.Deploy(ctx, testConfig(o, "v1"))
	require.NoError(t, err)
	assert.Nil(t, status.Active)
	require.NotNil(t, status.Waiting)
	assert.Equal(t, WorkerInstalled, status.Waiting.State)

	assert.ErrorIs(t, reg.PostMessage(ctx, "PING"), ErrUnknownMessage)
	require.NoError(t, reg.PostMessage(ctx, MessageSkipWaiting))
	assert.Equal(t, "v1", reg.Status().Active.Version)
	assert.ErrorIs(t, reg.PostMessage(ctx, MessageSkipWaiting), ErrNoWaitingWorker)
}

// gatedStorage holds dynamic writes until gate is closed.
type gatedStorage struct {
	*MemoryStorage
	gate chan struct{}
}

func (g *gatedStorage) Put(ctx context.Context, bucket string, e Entry) error {
	if strings.HasPrefix(bucket, "dynamic-") {
		<-g.gate
	}
	return g.MemoryStorage.Put(ctx, bucket, e)
}

func TestActivationOutlivesPendingDynamicWrite(t *testing.T) {
	o := newOrigin(t)
	storage := &gatedStorage{MemoryStorage: NewMemoryStorage(), gate: make(chan struct{})}
	ctx := context.Background()
	reg := NewRegistry(storage, o.Client(), logging.NewDiscardLogger(), true)

	_, err := reg.Deploy(ctx, testConfig(o, "v1"))
	require.NoError(t, err)
	v1 := reg.Active()

	resp, err := v1.Fetch(ctx, get(t, o.URL+"/api/services", nil))
	require.NoError(t, err)
	readBody(t, resp)

	time.AfterFunc(50*time.Millisecond, func() { close(storage.gate) })
	_, err = reg.Deploy(ctx, testConfig(o, "v2"))
	require.NoError(t, err)
	v1.Wait()

	keys, err := storage.Keys(ctx)
	require.NoError(t, err)
	assert.NotContains(t, keys, "dynamic-v1")
	assert.NotContains(t, keys, "static-v1")
}

func TestSQLStorage(t *testing.T) {
	logger := logging.NewDiscardLogger()
	db, err := database.Open(database.Config{SQLitePath: filepath.Join(t.TempDir(), "cache.db")}, logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.NewTableCreator().CreateSchema(db.DB))

	s := NewSQLStorage(db, logger, 0)
	ctx := context.Background()

	require.NoError(t, s.PutAll(ctx, "static-v1", []Entry{
		{URL: "https://site.test/", Status: 200, Header: http.Header{"Content-Type": {"text/html"}}, Body: []byte("<html>")},
		{URL: "https://site.test/app.js", Status: 200, Body: []byte("js")},
	}))
	require.NoError(t, s.Put(ctx, "dynamic-v0", Entry{URL: "https://api.site.test/x", Status: 200, Body: []byte("{}")}))

	e, ok, err := s.Match(ctx, "https://site.test/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "text/html", e.Header.Get("Content-Type"))
	assert.Equal(t, "<html>", string(e.Body))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"static-v1", "dynamic-v0"}, keys)

	require.NoError(t, s.Delete(ctx, "dynamic-v0"))
	_, ok, err = s.Match(ctx, "https://api.site.test/x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationClick(t *testing.T) {
	n := NewNotification("")
	require.Len(t, n.Actions, 2)
	assert.Equal(t, ActionExplore, n.Actions[0].Action)
	assert.Equal(t, ActionClose, n.Actions[1].Action)

	u, open := NotificationClick(ActionExplore)
	assert.True(t, open)
	assert.Equal(t, "/", u)
	_, open = NotificationClick(ActionClose)
	assert.False(t, open)
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("network unreachable")
}
