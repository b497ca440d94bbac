package chat

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func botMessage(i int) Message {
	return NewMessage(SenderBot, fmt.Sprintf("bot %d", i), time.Unix(0, int64(i)))
}

func TestToggleResetsUnread(t *testing.T) {
	s := NewState()
	s = Reduce(s, AddMessage{Message: botMessage(1)})
	s = Reduce(s, AddMessage{Message: botMessage(2)})
	require.Equal(t, 2, s.UnreadCount)

	s = Reduce(s, ToggleChat{})
	assert.True(t, s.IsOpen)
	assert.Equal(t, 0, s.UnreadCount)
	assert.True(t, s.HasBeenOpened)
}

func TestUserMessagesDoNotCountAsUnread(t *testing.T) {
	s := Reduce(NewState(), AddMessage{Message: NewMessage(SenderUser, "hi", time.Now())})
	assert.Equal(t, 0, s.UnreadCount)

	s = Reduce(s, AddMessage{Message: NewMessage(SenderSystem, "notice", time.Now())})
	assert.Equal(t, 1, s.UnreadCount)
}

func TestUnreadCountZeroWheneverOpen(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	senders := []Sender{SenderUser, SenderBot, SenderSystem}

	for run := 0; run < 200; run++ {
		s := NewState()
		for step := 0; step < 50; step++ {
			var a Action
			switch rng.Intn(4) {
			case 0:
				a = ToggleChat{}
			case 1:
				a = SetUnreadCount{Count: rng.Intn(5)}
			default:
				a = AddMessage{Message: NewMessage(senders[rng.Intn(3)], "x", time.Unix(0, int64(step)))}
			}
			s = Reduce(s, a)
			if s.IsOpen {
				require.Equal(t, 0, s.UnreadCount, "run %d step %d after %s", run, step, ActionName(a))
			}
		}
	}
}

func TestMessagesPreserveDispatchOrder(t *testing.T) {
	s := NewState()
	var want []string
	for i := 0; i < 25; i++ {
		m := botMessage(i)
		want = append(want, m.Text)
		s = Reduce(s, AddMessage{Message: m})
		if i%5 == 0 {
			s = Reduce(s, ToggleChat{})
		}
	}

	var got []string
	for _, m := range s.Messages {
		got = append(got, m.Text)
	}
	assert.Equal(t, want, got)
}

func TestReduceDoesNotAliasPreviousState(t *testing.T) {
	first := Reduce(NewState(), AddMessage{Message: botMessage(1)})
	second := Reduce(first, AddMessage{Message: botMessage(2)})
	third := Reduce(first, AddMessage{Message: botMessage(3)})

	require.Len(t, first.Messages, 1)
	assert.Equal(t, "bot 2", second.Messages[1].Text)
	assert.Equal(t, "bot 3", third.Messages[1].Text)
}

func TestMinimizeOnlyWhileOpen(t *testing.T) {
	s := Reduce(NewState(), MinimizeChat{})
	assert.False(t, s.IsMinimized)

	s = Reduce(s, ToggleChat{})
	s = Reduce(s, MinimizeChat{})
	assert.True(t, s.IsMinimized)

	s = Reduce(s, ToggleChat{})
	assert.False(t, s.IsMinimized)
}

func TestUpdateSettingsPatch(t *testing.T) {
	dark := "dark"
	bogus := "neon"
	off := false

	s := Reduce(NewState(), UpdateSettings{Patch: SettingsPatch{Theme: &dark, SoundEnabled: &off}})
	assert.Equal(t, ThemeDark, s.Settings.Theme)
	assert.False(t, s.Settings.SoundEnabled)
	assert.Equal(t, "en", s.Settings.Language)

	s = Reduce(s, UpdateSettings{Patch: SettingsPatch{Theme: &bogus}})
	assert.Equal(t, ThemeDark, s.Settings.Theme)
}

func TestClearAndLoadMessages(t *testing.T) {
	s := Reduce(NewState(), AddMessage{Message: botMessage(1)})
	s = Reduce(s, SetTyping{Typing: true})
	s = Reduce(s, ClearMessages{})
	assert.Empty(t, s.Messages)
	assert.Equal(t, 0, s.UnreadCount)
	assert.False(t, s.IsTyping)

	loaded := []Message{botMessage(7), botMessage(8)}
	s = Reduce(s, LoadMessages{Messages: loaded})
	loaded[0].Text = "mutated"
	assert.Equal(t, "bot 7", s.Messages[0].Text)
}

func TestSetUserCopies(t *testing.T) {
	u := &User{Name: "Ada"}
	s := Reduce(NewState(), SetUser{User: u})
	u.Name = "changed"
	require.NotNil(t, s.User)
	assert.Equal(t, "Ada", s.User.Name)

	s = Reduce(s, SetUser{User: nil})
	assert.Nil(t, s.User)
}
