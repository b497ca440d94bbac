package install

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakePrompt struct {
	outcome Outcome
	err     error
	calls   int
}

func (f *fakePrompt) Prompt(context.Context) (Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

func newTestController(platform Platform) (*Controller, *storage.MemoryStore) {
	durable := storage.NewMemoryStore()
	return NewController(platform, durable, storage.NewMemoryStore(), time.Millisecond), durable
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStandaloneStartsInstalled(t *testing.T) {
	c, _ := newTestController(Platform{Standalone: true})
	require.NoError(t, c.Init(context.Background()))
	assert.Equal(t, StateInstalled, c.State())

	c.CapturePrompt(context.Background(), &fakePrompt{outcome: OutcomeAccepted})
	assert.Equal(t, StateInstalled, c.State())
	assert.False(t, c.BannerVisible())
}

func TestStoredFlagStartsInstalled(t *testing.T) {
	ctx := context.Background()
	c, durable := newTestController(Platform{Browser: "Chrome"})
	require.NoError(t, storage.SetJSON(ctx, durable, storage.KeyInstalled, true))
	require.NoError(t, c.Init(ctx))
	assert.Equal(t, StateInstalled, c.State())
}

func TestBannerAppearsAfterDelayAndInstallAccepts(t *testing.T) {
	ctx := context.Background()
	c, durable := newTestController(Platform{Browser: "Chrome"})
	defer c.Close()
	require.NoError(t, c.Init(ctx))

	prompt := &fakePrompt{outcome: OutcomeAccepted}
	c.CapturePrompt(ctx, prompt)
	assert.Equal(t, StatePromptDeferred, c.State())
	assert.Zero(t, prompt.calls, "prompt is deferred, not shown")

	assert.Eventually(t, c.BannerVisible, time.Second, time.Millisecond)

	outcome, err := c.Install(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)
	assert.Equal(t, StateAccepted, c.State())
	assert.False(t, c.BannerVisible())
	assert.Equal(t, 1, prompt.calls)

	_, err = c.Install(ctx)
	assert.ErrorIs(t, err, ErrNoDeferredPrompt, "a prompt replays once")

	require.NoError(t, c.MarkInstalled(ctx))
	assert.Equal(t, StateInstalled, c.State())

	var flag bool
	require.NoError(t, storage.GetJSON(ctx, durable, storage.KeyInstalled, &flag))
	assert.True(t, flag)
}

func TestInstallDismissed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(Platform{})
	defer c.Close()

	c.CapturePrompt(ctx, &fakePrompt{outcome: OutcomeDismissed})
	outcome, err := c.Install(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDismissed, outcome)
	assert.Equal(t, StateDismissed, c.State())
}

func TestInstallPromptError(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(Platform{})
	defer c.Close()

	c.CapturePrompt(ctx, &fakePrompt{err: errors.New("boom")})
	_, err := c.Install(ctx)
	assert.Error(t, err)
}

func TestDismissedBannerStaysHiddenForSession(t *testing.T) {
	ctx := context.Background()
	durable := storage.NewMemoryStore()
	session := storage.NewMemoryStore()
	c := NewController(Platform{}, durable, session, 20*time.Millisecond)
	defer c.Close()

	c.CapturePrompt(ctx, &fakePrompt{outcome: OutcomeAccepted})
	require.NoError(t, c.DismissBanner(ctx))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, c.BannerVisible())
	assert.Equal(t, StatePromptDeferred, c.State(), "the platform prompt is still available")

	next := NewController(Platform{}, durable, storage.NewMemoryStore(), time.Millisecond)
	defer next.Close()
	next.CapturePrompt(ctx, &fakePrompt{outcome: OutcomeAccepted})
	assert.Eventually(t, next.BannerVisible, time.Second, time.Millisecond, "dismissal is not persisted across sessions")
}

func TestBannerNeverShowsOnceInstalled(t *testing.T) {
	ctx := context.Background()
	c := NewController(Platform{}, storage.NewMemoryStore(), storage.NewMemoryStore(), 20*time.Millisecond)
	defer c.Close()

	c.CapturePrompt(ctx, &fakePrompt{outcome: OutcomeAccepted})
	require.NoError(t, c.MarkInstalled(ctx))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, c.BannerVisible())
}

func TestFallbackInstructionsWithoutPrompt(t *testing.T) {
	c, _ := newTestController(Platform{Browser: "Safari"})
	ins, ok := c.FallbackInstructions()
	require.True(t, ok)
	assert.Equal(t, "Safari", ins.Browser)
	assert.NotEmpty(t, ins.Steps)

	_, err := c.Install(context.Background())
	assert.ErrorIs(t, err, ErrNoDeferredPrompt)

	c.CapturePrompt(context.Background(), &fakePrompt{})
	defer c.Close()
	_, ok = c.FallbackInstructions()
	assert.False(t, ok)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(Platform{})
	defer c.Close()

	seen := make(chan Snapshot, 8)
	c.OnChange(func(s Snapshot) { seen <- s })
	c.CapturePrompt(ctx, &fakePrompt{outcome: OutcomeAccepted})

	first := <-seen
	assert.Equal(t, StatePromptDeferred, first.State)
	assert.True(t, first.CanPrompt)
}
