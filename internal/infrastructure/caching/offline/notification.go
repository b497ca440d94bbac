package offline

// NotificationAction is a button on a push notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is the payload the page shows through the worker.
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon"`
	Badge   string               `json:"badge"`
	Vibrate []int                `json:"vibrate"`
	Data    map[string]any       `json:"data"`
	Actions []NotificationAction `json:"actions"`
}

const (
	ActionExplore = "explore"
	ActionClose   = "close"

	notificationTitle = "Web Agency"
	notificationIcon  = "/icons/icon-192x192.png"
	notificationBadge = "/icons/icon-72x72.png"
)

// NewNotification builds a notification with the fixed title, icon, badge
// and the explore/close actions. An empty body gets the default text.
func NewNotification(body string) Notification {
	if body == "" {
		body = "New update available!"
	}
	return Notification{
		Title:   notificationTitle,
		Body:    body,
		Icon:    notificationIcon,
		Badge:   notificationBadge,
		Vibrate: []int{100, 50, 100},
		Data:    map[string]any{"primaryKey": 1},
		Actions: []NotificationAction{
			{Action: ActionExplore, Title: "View", Icon: notificationIcon},
			{Action: ActionClose, Title: "Close", Icon: notificationIcon},
		},
	}
}

// NotificationClick returns the URL to open or focus for a click on the
// notification or one of its actions. Close opens nothing.
func NotificationClick(action string) (string, bool) {
	if action == ActionClose {
		return "", false
	}
	return "/", true
}
