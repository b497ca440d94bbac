package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/caching/offline"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageDoer serves fixed pages in memory; offline makes every request fail.
type pageDoer struct {
	mu      sync.Mutex
	pages   map[string]string
	offline bool
}

func (d *pageDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.offline {
		return nil, errors.New("network unreachable")
	}
	body, ok := d.pages[req.URL.Path]
	status := http.StatusOK
	if !ok {
		status, body = http.StatusNotFound, "not found"
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func (d *pageDoer) setOffline(v bool) {
	d.mu.Lock()
	d.offline = v
	d.mu.Unlock()
}

func newTestShell(t *testing.T) (*ShellService, *pageDoer, *recordingPublisher) {
	t.Helper()
	doer := &pageDoer{pages: map[string]string{"/": "home", "/offline.html": "offline page"}}
	pub := &recordingPublisher{}
	registry := offline.NewRegistry(offline.NewMemoryStorage(), doer, logging.NewDiscardLogger(), true)
	base := offline.Config{
		Version:     "v1",
		Origin:      "https://agency.test",
		Manifest:    []string{"/", "/offline.html"},
		OfflinePage: "/offline.html",
	}
	return NewShellService(registry, pub, base, logging.NewDiscardLogger()), doer, pub
}

func TestShellNotReadyBeforeDeploy(t *testing.T) {
	shell, _, _ := newTestShell(t)
	req, _ := http.NewRequest(http.MethodGet, "https://agency.test/", nil)
	_, err := shell.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, ErrShellNotReady)
}

func TestShellDeployClaimsClients(t *testing.T) {
	ctx := context.Background()
	shell, doer, pub := newTestShell(t)

	status, err := shell.Deploy(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, status.Active)
	assert.Equal(t, "v1", status.Active.Version)
	assert.Equal(t, []string{messaging.EventControllerChange}, pub.broadcastTypes())

	target, err := shell.Resolve("/")
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Sec-Fetch-Dest", "document")

	doer.setOffline(true)
	resp, err := shell.Fetch(ctx, req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "home", string(body))
	shell.Wait()
}

func TestShellFailedDeployKeepsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	shell, doer, pub := newTestShell(t)
	_, err := shell.Deploy(ctx, "v1")
	require.NoError(t, err)

	doer.setOffline(true)
	status, err := shell.Deploy(ctx, "v2")
	assert.ErrorIs(t, err, offline.ErrPrecacheFailed)
	require.NotNil(t, status.Active)
	assert.Equal(t, "v1", status.Active.Version)
	assert.Len(t, pub.broadcastTypes(), 1)
}

func TestShellNotifyBroadcasts(t *testing.T) {
	shell, _, pub := newTestShell(t)

	n := shell.Notify("")
	assert.Equal(t, "New update available!", n.Body)
	assert.Equal(t, []string{messaging.EventNotification}, pub.broadcastTypes())

	err := shell.PostMessage(context.Background(), "RELOAD")
	assert.ErrorIs(t, err, offline.ErrUnknownMessage)
}

func TestShellWithoutPublisher(t *testing.T) {
	doer := &pageDoer{pages: map[string]string{"/": "home"}}
	registry := offline.NewRegistry(offline.NewMemoryStorage(), doer, logging.NewDiscardLogger(), true)
	shell := NewShellService(registry, nil, offline.Config{Version: "v1", Origin: "https://agency.test", Manifest: []string{"/"}}, logging.NewDiscardLogger())

	_, err := shell.Deploy(context.Background(), "")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		n := shell.Notify("Fresh case study")
		assert.Equal(t, "Fresh case study", n.Body)
	})
}
