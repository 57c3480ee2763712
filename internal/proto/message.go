package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Ref  string          `json:"ref,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSendMessage = "send_message"
	InboundTypeTyping      = "typing"
	InboundTypeStopTyping  = "stop_typing"
	InboundTypeShareFile   = "share_file"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage    = "message"
	EventNameUserJoined = "user_joined"
	EventNameUserLeft   = "user_left"
	EventNameTyping     = "typing"
	EventNameStopTyping = "stop_typing"
)

// Attachment is an optional file reference on a message.
type Attachment struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,max=2048"`
	Size int64  `json:"size" validate:"gte=0"`
}

// SendMessageData is a chat message from the client. Content rules are
// enforced by the core validator.
type SendMessageData struct {
	GroupID    int64       `json:"group_id" validate:"gte=0"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// TypingData starts or stops a typing indicator.
type TypingData struct {
	GroupID int64 `json:"group_id" validate:"gte=0"`
}

// ShareFileData announces a shared file.
type ShareFileData struct {
	GroupID  int64  `json:"group_id" validate:"gte=0"`
	FileName string `json:"filename" validate:"required,max=255"`
	FileURL  string `json:"file_url" validate:"required,max=2048"`
	FileSize int64  `json:"file_size" validate:"gte=0"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Ref   string `json:"ref,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// AckData answers a send_message or share_file.
type AckData struct {
	Success   bool   `json:"success"`
	MessageID int64  `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

// EventMessage carries a persisted message to the group.
type EventMessage struct {
	ID         int64       `json:"id"`
	GroupID    int64       `json:"group_id"`
	SenderID   int64       `json:"sender_id"`
	SenderType string      `json:"sender_type"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment"`
	SentAt     string      `json:"sent_at"`
}

// EventPresence is the payload of user_joined, user_left, typing and stop_typing.
type EventPresence struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
