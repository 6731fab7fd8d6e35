package domain

import (
	"encoding/json"
	"strings"
)

const (
	DefaultChannel = "chat-channel"
	DefaultEvent   = "new-message"
)

// CodeInvalidMessage marks a publish request with nothing to say.
const CodeInvalidMessage = "invalid_message"

// PublishRequest is a board post. SocketID identifies the sender's own
// connection so the post is not echoed back to it.
type PublishRequest struct {
	Message  string `json:"message"`
	SocketID string `json:"socketId,omitempty"`
}

// Normalize returns the message with surrounding whitespace removed.
func (r PublishRequest) Normalize() string {
	return strings.TrimSpace(r.Message)
}

// MessagePayload is the event body subscribers receive.
type MessagePayload struct {
	Message string `json:"message"`
}

// Frame types sent over the board websocket.
const (
	FrameConnected = "connected"
	FrameEvent     = "event"
	FrameError     = "error"
)

// Frame is one server-to-browser websocket message.
type Frame struct {
	Type     string          `json:"type"`
	SocketID string          `json:"socketId,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Event    string          `json:"event,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}
