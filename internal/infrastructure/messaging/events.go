// Package messaging pushes realtime events to visitors over websockets.
package messaging

import "encoding/json"

// Event types pushed to the page.
const (
	EventControllerChange = "controllerchange"
	EventNotification     = "notification"
	EventChatState        = "chat_state"
	EventInstallPrompt    = "install_prompt"
	EventInstallState     = "install_state"
)

// Frame types the page sends up.
const (
	InboundInstallOutcome = "install_outcome"
	InboundSkipWaiting    = "skip_waiting"
)

// Event is one frame sent to a client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is a frame received from a client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events. Delivery is best-effort: slow clients drop frames.
type Publisher interface {
	SendToSession(sessionID string, event Event)
	Broadcast(event Event)
}
