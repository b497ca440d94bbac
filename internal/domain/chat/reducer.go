package chat

// Reduce applies a to s and returns the next state. It has no side effects
// and never aliases the message slice of s, so earlier states stay valid.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case ToggleChat:
		s.IsOpen = !s.IsOpen
		s.IsMinimized = false
		if s.IsOpen {
			s.UnreadCount = 0
			s.HasBeenOpened = true
		}

	case MinimizeChat:
		if s.IsOpen {
			s.IsMinimized = !s.IsMinimized
		}

	case AddMessage:
		s.Messages = appendMessages(s.Messages, act.Message)
		if !s.IsOpen && act.Message.IsIncoming() {
			s.UnreadCount++
		}

	case SetTyping:
		s.IsTyping = act.Typing

	case SetUnreadCount:
		count := act.Count
		if count < 0 || s.IsOpen {
			count = 0
		}
		s.UnreadCount = count

	case SetUser:
		if act.User == nil {
			s.User = nil
		} else {
			u := *act.User
			s.User = &u
		}

	case UpdateSettings:
		s.Settings = act.Patch.Apply(s.Settings)

	case ClearMessages:
		s.Messages = []Message{}
		s.UnreadCount = 0
		s.IsTyping = false

	case LoadMessages:
		s.Messages = appendMessages(nil, act.Messages...)
	}
	return s
}

func appendMessages(existing []Message, add ...Message) []Message {
	out := make([]Message, 0, len(existing)+len(add))
	out = append(out, existing...)
	return append(out, add...)
}
