// Package message defines the wire protocol frames exchanged over a chat
// WebSocket connection and the persisted chat message entity.
package message

import "time"

// FrameType discriminates the structured frames on the wire.
type FrameType string

const (
	// Inbound frame types.
	TypeAuth    FrameType = "auth"
	TypeMessage FrameType = "message"
	TypePing    FrameType = "ping"

	// Outbound frame types.
	TypeAuthSuccess FrameType = "auth_success"
	TypeMessageSent FrameType = "message_sent"
	TypePong        FrameType = "pong"
	TypeError       FrameType = "error"
)

// ChatMessage is a persisted chat message. Immutable once written except for
// ReadAt, which is set at most once by the receiving user.
type ChatMessage struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// Frame is an inbound wire frame. Fields beyond Type are populated depending
// on the frame type; unknown types are rejected by the session.
type Frame struct {
	Type       FrameType `json:"type"`
	Token      string    `json:"token,omitempty"`
	ReceiverID int64     `json:"receiver_id,omitempty"`
	Content    string    `json:"content,omitempty"`
}

// ErrorFrame is sent to the client when a frame cannot be processed.
// The "message" field carries human-readable text, matching the rest of the
// protocol where the same field carries a message object.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

// NewErrorFrame builds an error frame with the given text.
func NewErrorFrame(text string) *ErrorFrame {
	return &ErrorFrame{Type: TypeError, Message: text}
}

// AuthSuccessFrame acknowledges a successful in-band authentication.
type AuthSuccessFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
	UserID  int64     `json:"userId"`
}

// NewAuthSuccessFrame builds the acknowledgment for a freshly authenticated user.
func NewAuthSuccessFrame(userID int64) *AuthSuccessFrame {
	return &AuthSuccessFrame{
		Type:    TypeAuthSuccess,
		Message: "Authentication successful",
		UserID:  userID,
	}
}

// ChatFrame carries a persisted message, either as a push to the receiver
// (type "message") or as the sender's acknowledgment (type "message_sent").
type ChatFrame struct {
	Type    FrameType    `json:"type"`
	Message *ChatMessage `json:"message"`
}

// NewPushFrame builds the frame pushed to an online receiver.
func NewPushFrame(msg *ChatMessage) *ChatFrame {
	return &ChatFrame{Type: TypeMessage, Message: msg}
}

// NewSentFrame builds the sender's acknowledgment frame.
func NewSentFrame(msg *ChatMessage) *ChatFrame {
	return &ChatFrame{Type: TypeMessageSent, Message: msg}
}

// PongFrame replies to a heartbeat ping.
type PongFrame struct {
	Type FrameType `json:"type"`
}

// NewPongFrame builds a pong reply.
func NewPongFrame() *PongFrame {
	return &PongFrame{Type: TypePong}
}
