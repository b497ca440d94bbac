package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/chat"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(_ context.Context, audio io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return s.text, s.err
}

func newTestChat(t *testing.T, store storage.Store, opts ChatOptions) (*ChatController, *recordingTracker) {
	t.Helper()
	tracker := &recordingTracker{}
	c := NewChatController("session_test", store, tracker, opts, logging.NewDiscardLogger())
	t.Cleanup(c.Close)
	return c, tracker
}

func TestSendMessageRejectsBlank(t *testing.T) {
	c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})

	err := c.SendMessage(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, c.State().Messages)
	assert.False(t, c.State().IsTyping)
	assert.Empty(t, tracker.messages)
}

func TestQuoteRequestGetsPricingReply(t *testing.T) {
	ctx := context.Background()
	c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})

	opened := c.Toggle(ctx)
	require.True(t, opened.IsOpen)
	require.Len(t, opened.Messages, 1, "greeting")

	require.NoError(t, c.SendMessage(ctx, "I need a quote"))
	c.Wait()

	state := c.State()
	require.Len(t, state.Messages, 3)
	user := state.Messages[1]
	assert.Equal(t, chat.SenderUser, user.Sender)
	assert.Equal(t, "I need a quote", user.Text)

	bot, ok := state.LastMessage()
	require.True(t, ok)
	assert.Equal(t, chat.SenderBot, bot.Sender)
	assert.Equal(t, chat.TypeQuickReply, bot.Type)
	assert.Equal(t, []string{"Yes, get quote", "See portfolio", "Contact sales", "Schedule call"}, bot.QuickReplies)
	assert.False(t, state.IsTyping)
	assert.Equal(t, 0, state.UnreadCount)

	assert.Equal(t, 1, tracker.openCount())
	assert.Equal(t, []int{len("I need a quote")}, tracker.messages)
}

func TestReplyWhileClosedCountsUnread(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})

	require.NoError(t, c.SendMessage(ctx, "hello"))
	c.Wait()
	assert.Equal(t, 1, c.State().UnreadCount)

	assert.Equal(t, 0, c.Toggle(ctx).UnreadCount)
}

func TestTypingShowsUntilReply(t *testing.T) {
	c, _ := newTestChat(t, storage.NewMemoryStore(), ChatOptions{ReplyMinDelay: time.Hour, ReplyMaxDelay: time.Hour})

	require.NoError(t, c.SendMessage(context.Background(), "website please"))
	state := c.State()
	assert.True(t, state.IsTyping)
	assert.Len(t, state.Messages, 1)
}

func TestCloseCancelsPendingReply(t *testing.T) {
	tracker := &recordingTracker{}
	c := NewChatController("session_test", storage.NewMemoryStore(), tracker, ChatOptions{ReplyMinDelay: time.Hour, ReplyMaxDelay: time.Hour}, logging.NewDiscardLogger())
	require.NoError(t, c.SendMessage(context.Background(), "hi"))

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a pending reply")
	}
	assert.Len(t, c.State().Messages, 1)
}

func TestMessagesAndSettingsPersist(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c, _ := newTestChat(t, store, ChatOptions{})

	require.NoError(t, c.SendMessage(ctx, "portfolio"))
	c.Wait()
	dark := chat.ThemeDark
	c.UpdateSettings(ctx, chat.SettingsPatch{Theme: &dark})

	var stored []chat.Message
	require.NoError(t, storage.GetJSON(ctx, store, storage.KeyChatMessages, &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "portfolio", stored[0].Text)

	var settings chat.Settings
	require.NoError(t, storage.GetJSON(ctx, store, storage.KeyChatSettings, &settings))
	assert.Equal(t, chat.ThemeDark, settings.Theme)
}

func TestMountRestoresHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	history := []chat.Message{
		chat.NewMessage(chat.SenderUser, "hi", at),
		chat.NewMessage(chat.SenderBot, "hello", at.Add(time.Second)),
	}
	require.NoError(t, storage.SetJSON(ctx, store, storage.KeyChatMessages, history))
	settings := chat.DefaultSettings()
	settings.Language = "es"
	require.NoError(t, storage.SetJSON(ctx, store, storage.KeyChatSettings, settings))

	c, _ := newTestChat(t, store, ChatOptions{})
	c.Mount(ctx)

	state := c.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, history[1].ID, state.Messages[1].ID)
	assert.True(t, at.Equal(state.Messages[0].Timestamp))
	assert.Equal(t, "es", state.Settings.Language)
	assert.Equal(t, 0, state.UnreadCount)
}

func TestPersistenceFailuresAreNotSurfaced(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestChat(t, brokenStore{}, ChatOptions{})

	c.Mount(ctx)
	require.NoError(t, c.SendMessage(ctx, "anyone there?"))
	c.Wait()
	assert.Len(t, c.State().Messages, 2)
}

func TestAutoOpenFiresOnce(t *testing.T) {
	ctx := context.Background()
	c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{AutoOpenDelay: time.Millisecond})

	c.Mount(ctx)
	require.Eventually(t, func() bool { return c.State().IsOpen }, 2*time.Second, 5*time.Millisecond)
	c.Toggle(ctx)

	c.Mount(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, c.State().IsOpen)
	assert.Equal(t, 1, tracker.openCount())
}

func TestAutoOpenSkippedWithUnread(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestChat(t, storage.NewMemoryStore(), ChatOptions{AutoOpenDelay: 50 * time.Millisecond})

	c.Mount(ctx)
	c.Dispatch(ctx, chat.AddMessage{Message: chat.NewMessage(chat.SenderSystem, "notice", time.Now())})
	time.Sleep(120 * time.Millisecond)

	state := c.State()
	assert.False(t, state.IsOpen)
	assert.Equal(t, 1, state.UnreadCount)
}

func TestSelectQuickReplyTracksAction(t *testing.T) {
	ctx := context.Background()
	c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})

	require.NoError(t, c.SelectQuickReply(ctx, "Schedule call"))
	c.Wait()

	assert.Equal(t, []string{"Schedule call"}, tracker.actions)
	last, _ := c.State().LastMessage()
	assert.Contains(t, last.QuickReplies, "Call now")
}

func TestSendFileAcknowledgesAttachment(t *testing.T) {
	ctx := context.Background()
	c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})

	c.SendFile(ctx, chat.Attachment{ID: "a1", Filename: "brief.pdf", MimeType: "application/pdf", Size: 2048, URL: "/media/uploads/a1.pdf"})
	c.Wait()

	state := c.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, chat.TypeFile, state.Messages[0].Type)
	require.Len(t, state.Messages[0].Attachments, 1)
	assert.Contains(t, state.Messages[1].Text, "brief.pdf")
	assert.Equal(t, []string{"brief.pdf"}, tracker.uploads)
}

func TestSendVoice(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		c, _ := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})
		_, err := c.SendVoice(ctx, strings.NewReader("audio"), "")
		assert.ErrorIs(t, err, ErrVoiceDisabled)
	})

	t.Run("transcribed", func(t *testing.T) {
		c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{Transcriber: stubTranscriber{text: "how much does a website cost"}})
		text, err := c.SendVoice(ctx, strings.NewReader("audio"), "/media/uploads/v.webm")
		require.NoError(t, err)
		c.Wait()

		assert.Equal(t, "how much does a website cost", text)
		state := c.State()
		require.Len(t, state.Messages, 2)
		assert.Equal(t, chat.TypeAudio, state.Messages[0].Type)
		assert.Equal(t, "/media/uploads/v.webm", state.Messages[0].AudioURL)
		assert.Equal(t, []bool{true}, tracker.voice)
	})

	t.Run("transcription fails", func(t *testing.T) {
		boom := errors.New("upstream down")
		c, tracker := newTestChat(t, storage.NewMemoryStore(), ChatOptions{Transcriber: stubTranscriber{err: boom}})
		_, err := c.SendVoice(ctx, strings.NewReader("audio"), "")
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, c.State().Messages)
		assert.Equal(t, []bool{false}, tracker.voice)
	})
}

func TestOnChangeSeesEveryAction(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestChat(t, storage.NewMemoryStore(), ChatOptions{})

	var seen []int
	c.OnChange(func(s chat.State) { seen = append(seen, len(s.Messages)) })
	c.Minimize(ctx)
	c.SetUser(ctx, &chat.User{Name: "Ada"})
	c.Clear(ctx)

	assert.Equal(t, []int{0, 0, 0}, seen)
	require.NotNil(t, c.State().User)
	assert.Equal(t, "Ada", c.State().User.Name)
}
