package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/chat"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/responder"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/transcription"
)

// ChatOptions tunes one chat controller.
type ChatOptions struct {
	ReplyMinDelay time.Duration
	ReplyMaxDelay time.Duration
	// AutoOpenDelay opens the widget once per load; zero disables it.
	AutoOpenDelay time.Duration
	// Transcriber is nil when voice messages are disabled.
	Transcriber transcription.Transcriber
}

// ChatController layers persistence, analytics and the delayed canned reply
// around the pure chat reducer. Actions apply one at a time in dispatch order.
type ChatController struct {
	mu        sync.Mutex
	state     chat.State
	sessionID string
	store     storage.Store
	tracker   ChatTracker
	opts      ChatOptions
	logger    *logging.ChanneledLogger
	onChange  func(chat.State)
	now       func() time.Time

	mounted bool
	closed  bool
	timers  map[*time.Timer]struct{}
	pending sync.WaitGroup
}

// NewChatController builds a controller for one widget instance. store must
// already be scoped to the visitor.
func NewChatController(sessionID string, store storage.Store, tracker ChatTracker, opts ChatOptions, logger *logging.ChanneledLogger) *ChatController {
	if opts.ReplyMaxDelay < opts.ReplyMinDelay {
		opts.ReplyMaxDelay = opts.ReplyMinDelay
	}
	return &ChatController{
		state:     chat.NewState(),
		sessionID: sessionID,
		store:     store,
		tracker:   tracker,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		timers:    make(map[*time.Timer]struct{}),
	}
}

// OnChange registers a callback fired with the new state after every action.
func (c *ChatController) OnChange(fn func(chat.State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Mount restores persisted messages and settings and arms the auto-open timer.
// Calling it again is a no-op.
func (c *ChatController) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	log := c.logger.WithSession(logging.ChannelChat, c.sessionID)

	var messages []chat.Message
	if err := storage.GetJSON(ctx, c.store, storage.KeyChatMessages, &messages); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("Failed to load chat history", "error", err.Error())
		}
	} else {
		c.Dispatch(ctx, chat.LoadMessages{Messages: messages})
	}

	settings := chat.DefaultSettings()
	if err := storage.GetJSON(ctx, c.store, storage.KeyChatSettings, &settings); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("Failed to load chat settings", "error", err.Error())
		}
	} else {
		c.mu.Lock()
		c.state.Settings = settings
		c.mu.Unlock()
	}

	if c.opts.AutoOpenDelay > 0 {
		c.schedule(c.opts.AutoOpenDelay, func() { c.autoOpen(context.WithoutCancel(ctx)) })
	}
}

func (c *ChatController) autoOpen(ctx context.Context) {
	c.mu.Lock()
	eligible := !c.state.HasBeenOpened && !c.state.IsOpen && c.state.UnreadCount == 0
	c.mu.Unlock()
	if eligible {
		c.Toggle(ctx)
	}
}

// Dispatch applies a and persists messages or settings when they changed.
// Persistence failures are logged only.
func (c *ChatController) Dispatch(ctx context.Context, a chat.Action) chat.State {
	c.mu.Lock()
	c.state = chat.Reduce(c.state, a)
	c.persistLocked(ctx, a)
	next := c.state
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(next)
	}
	return next
}

func (c *ChatController) persistLocked(ctx context.Context, a chat.Action) {
	var key string
	var value any
	switch a.(type) {
	case chat.AddMessage, chat.ClearMessages:
		key, value = storage.KeyChatMessages, c.state.Messages
	case chat.UpdateSettings:
		key, value = storage.KeyChatSettings, c.state.Settings
	default:
		return
	}
	if err := storage.SetJSON(ctx, c.store, key, value); err != nil {
		c.logger.WithSession(logging.ChannelChat, c.sessionID).Error("Failed to persist chat state",
			"key", key, "action", chat.ActionName(a), "error", err.Error())
	}
}

// SendMessage appends the visitor's text and schedules the canned reply.
func (c *ChatController) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.Dispatch(ctx, chat.AddMessage{Message: chat.NewMessage(chat.SenderUser, text, c.now())})
	c.Dispatch(ctx, chat.SetTyping{Typing: true})
	c.tracker.TrackMessageSent(len(text))
	c.reply(ctx, responder.Respond(text))
	return nil
}

// SelectQuickReply sends a quick reply as if the visitor had typed it.
func (c *ChatController) SelectQuickReply(ctx context.Context, reply string) error {
	if strings.TrimSpace(reply) == "" {
		return ErrEmptyMessage
	}
	c.tracker.TrackQuickAction(reply)
	return c.SendMessage(ctx, reply)
}

// SendFile posts an already stored attachment.
func (c *ChatController) SendFile(ctx context.Context, att chat.Attachment) {
	msg := chat.NewMessage(chat.SenderUser, att.Filename, c.now())
	msg.Type = chat.TypeFile
	msg.Attachments = []chat.Attachment{att}

	c.Dispatch(ctx, chat.AddMessage{Message: msg})
	c.Dispatch(ctx, chat.SetTyping{Typing: true})
	c.tracker.TrackFileUpload(att.Filename, att.Size)
	c.reply(ctx, responder.ForAttachment(att.Filename))
}

// SendVoice transcribes audio and answers the transcript.
func (c *ChatController) SendVoice(ctx context.Context, audio io.Reader, audioURL string) (string, error) {
	if c.opts.Transcriber == nil {
		return "", ErrVoiceDisabled
	}

	transcript, err := c.opts.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		c.tracker.TrackVoiceMessage(false)
		return "", fmt.Errorf("failed to transcribe voice message: %w", err)
	}

	msg := chat.NewMessage(chat.SenderUser, transcript, c.now())
	msg.Type = chat.TypeAudio
	msg.AudioURL = audioURL

	c.Dispatch(ctx, chat.AddMessage{Message: msg})
	c.Dispatch(ctx, chat.SetTyping{Typing: true})
	c.tracker.TrackVoiceMessage(true)
	c.reply(ctx, responder.Respond(transcript))
	return transcript, nil
}

func (c *ChatController) reply(ctx context.Context, resp responder.Response) {
	replyCtx := context.WithoutCancel(ctx)
	c.schedule(c.replyDelay(), func() {
		msg := chat.NewMessage(chat.SenderBot, resp.Text, c.now())
		if len(resp.QuickReplies) > 0 {
			msg.Type = chat.TypeQuickReply
			msg.QuickReplies = resp.QuickReplies
		}
		c.Dispatch(replyCtx, chat.AddMessage{Message: msg})
		c.Dispatch(replyCtx, chat.SetTyping{Typing: false})
	})
}

func (c *ChatController) replyDelay() time.Duration {
	span := c.opts.ReplyMaxDelay - c.opts.ReplyMinDelay
	if span <= 0 {
		return c.opts.ReplyMinDelay
	}
	return c.opts.ReplyMinDelay + rand.N(span+1)
}

// schedule runs fn after d unless the controller is closed first.
func (c *ChatController) schedule(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.pending.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer c.pending.Done()
		c.mu.Lock()
		delete(c.timers, t)
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			fn()
		}
	})
	c.timers[t] = struct{}{}
}

// Toggle opens or closes the widget. A first open of an empty conversation
// posts the greeting.
func (c *ChatController) Toggle(ctx context.Context) chat.State {
	next := c.Dispatch(ctx, chat.ToggleChat{})
	if !next.IsOpen {
		c.tracker.TrackChatClose()
		return next
	}

	c.tracker.TrackChatOpen()
	if len(next.Messages) == 0 {
		g := responder.Greeting()
		msg := chat.NewMessage(chat.SenderBot, g.Text, c.now())
		msg.Type = chat.TypeQuickReply
		msg.QuickReplies = g.QuickReplies
		next = c.Dispatch(ctx, chat.AddMessage{Message: msg})
	}
	return next
}

func (c *ChatController) Minimize(ctx context.Context) chat.State {
	return c.Dispatch(ctx, chat.MinimizeChat{})
}

func (c *ChatController) Clear(ctx context.Context) chat.State {
	return c.Dispatch(ctx, chat.ClearMessages{})
}

func (c *ChatController) UpdateSettings(ctx context.Context, patch chat.SettingsPatch) chat.State {
	return c.Dispatch(ctx, chat.UpdateSettings{Patch: patch})
}

func (c *ChatController) SetUser(ctx context.Context, user *chat.User) chat.State {
	return c.Dispatch(ctx, chat.SetUser{User: user})
}

// State returns the current state. The message slice must not be modified.
func (c *ChatController) State() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until every scheduled reply has fired.
func (c *ChatController) Wait() {
	c.pending.Wait()
}

// Close cancels pending replies and the auto-open timer.
func (c *ChatController) Close() {
	c.mu.Lock()
	c.closed = true
	for t := range c.timers {
		if t.Stop() {
			c.pending.Done()
		}
	}
	c.timers = nil
	c.mu.Unlock()
	c.pending.Wait()
}
