package chat

// Theme values accepted in Settings.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// Settings are persisted separately from the message list.
type Settings struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	SoundEnabled  bool   `json:"soundEnabled"`
	Notifications bool   `json:"notifications"`
}

// DefaultSettings is what a first-time visitor gets.
func DefaultSettings() Settings {
	return Settings{
		Theme:         ThemeAuto,
		Language:      "en",
		SoundEnabled:  true,
		Notifications: true,
	}
}

// SettingsPatch carries a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	Theme         *string `json:"theme,omitempty"`
	Language      *string `json:"language,omitempty"`
	SoundEnabled  *bool   `json:"soundEnabled,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
}

// Apply returns s with the non-nil fields of p applied. Unknown themes are ignored.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		switch *p.Theme {
		case ThemeLight, ThemeDark, ThemeAuto:
			s.Theme = *p.Theme
		}
	}
	if p.Language != nil && *p.Language != "" {
		s.Language = *p.Language
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	return s
}

// User is whatever the visitor has told the widget about themselves.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// State is the single source of truth for one widget instance.
//
// IsMinimized only means something while IsOpen. UnreadCount is zero whenever
// IsOpen is true. HasBeenOpened feeds the one-shot auto-open rule.
type State struct {
	IsOpen        bool      `json:"isOpen"`
	IsMinimized   bool      `json:"isMinimized"`
	Messages      []Message `json:"messages"`
	IsTyping      bool      `json:"isTyping"`
	UnreadCount   int       `json:"unreadCount"`
	User          *User     `json:"user,omitempty"`
	Settings      Settings  `json:"settings"`
	HasBeenOpened bool      `json:"hasBeenOpened"`
}

// NewState returns a closed widget with default settings.
func NewState() State {
	return State{
		Messages: []Message{},
		Settings: DefaultSettings(),
	}
}

// LastMessage returns the newest message, if any. Quick replies are only
// rendered for this one.
func (s State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
