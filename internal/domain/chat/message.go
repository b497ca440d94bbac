// Package chat holds the quick chat widget's state model and its pure reducer.
package chat

import (
	"fmt"
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// MessageType narrows how a message is rendered.
type MessageType string

const (
	TypeText       MessageType = "text"
	TypeQuickReply MessageType = "quick-reply"
	TypeForm       MessageType = "form"
	TypeFile       MessageType = "file"
	TypeAudio      MessageType = "audio"
)

// Attachment references user supplied binary content. The chat engine never
// looks inside it.
type Attachment struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Message is one turn in the conversation. Messages are never mutated once
// created.
type Message struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Sender       Sender       `json:"sender"`
	Timestamp    time.Time    `json:"timestamp"`
	Type         MessageType  `json:"type,omitempty"`
	QuickReplies []string     `json:"quickReplies,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	AudioURL     string       `json:"audioUrl,omitempty"`
}

// NewMessage stamps a message with a sender-prefixed, time-based id.
func NewMessage(sender Sender, text string, now time.Time) Message {
	return Message{
		ID:        fmt.Sprintf("%s-%d", sender, now.UnixNano()),
		Text:      text,
		Sender:    sender,
		Timestamp: now,
		Type:      TypeText,
	}
}

// IsIncoming reports whether the message counts toward the unread badge.
func (m Message) IsIncoming() bool {
	return m.Sender == SenderBot || m.Sender == SenderSystem
}
