package chat

// Action is the closed set of state transitions. Only types in this package
// implement it.
type Action interface {
	actionName() string
}

type (
	ToggleChat     struct{}
	MinimizeChat   struct{}
	AddMessage     struct{ Message Message }
	SetTyping      struct{ Typing bool }
	SetUnreadCount struct{ Count int }
	SetUser        struct{ User *User }
	UpdateSettings struct{ Patch SettingsPatch }
	ClearMessages  struct{}
	LoadMessages   struct{ Messages []Message }
)

func (ToggleChat) actionName() string     { return "TOGGLE_CHAT" }
func (MinimizeChat) actionName() string   { return "MINIMIZE_CHAT" }
func (AddMessage) actionName() string     { return "ADD_MESSAGE" }
func (SetTyping) actionName() string      { return "SET_TYPING" }
func (SetUnreadCount) actionName() string { return "SET_UNREAD_COUNT" }
func (SetUser) actionName() string        { return "SET_USER" }
func (UpdateSettings) actionName() string { return "UPDATE_SETTINGS" }
func (ClearMessages) actionName() string  { return "CLEAR_MESSAGES" }
func (LoadMessages) actionName() string   { return "LOAD_MESSAGES" }

// ActionName returns the wire name of a, e.g. "ADD_MESSAGE".
func ActionName(a Action) string {
	return a.actionName()
}
