package proto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin        = "join"
	InboundTypeChatMessage = "chat_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventUserJoined = "user_joined"
	EventNewMessage = "new_message"
	EventUserLeft   = "user_left"
)

var validate = validator.New()

// JoinData asks to bind the connection to a username.
// On the wire it is either a bare JSON string or {"username": "..."}.
// Length limits are configurable and enforced by the core.
type JoinData struct {
	Username string `json:"username" validate:"required"`
}

// UnmarshalJSON accepts both the string and the object form.
func (d *JoinData) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &d.Username)
	}
	type plain JoinData
	return json.Unmarshal(data, (*plain)(d))
}

// ChatMessageData is a chat message from the client.
// Content length is configurable and enforced by the core.
type ChatMessageData struct {
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,max=2048"`
}

// Decode unmarshals an inbound payload into v and validates its tags.
func Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// User is the public view of a user.
type User struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	LastSeen time.Time `json:"lastSeen"`
}

// Author is the embedded author of a message.
type Author struct {
	Username string `json:"username"`
}

// Message is a stored message enriched with its author's username.
type Message struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ImageURL  *string   `json:"imageUrl"`
	User      Author    `json:"user"`
}

// UserLeft notifies that a user's connection closed.
type UserLeft struct {
	UserID int64 `json:"userId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
