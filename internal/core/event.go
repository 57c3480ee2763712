package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage delivers a persisted chat message or file share to a group.
	EventMessage EventKind = iota
	// EventUserJoined notifies a group that an actor connected.
	EventUserJoined
	// EventUserLeft notifies a group that an actor disconnected.
	EventUserLeft
	// EventTyping notifies a group that an actor is typing.
	EventTyping
	// EventStopTyping notifies a group that an actor stopped typing.
	EventStopTyping
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventUserJoined:
		return "user_joined"
	case EventUserLeft:
		return "user_left"
	case EventTyping:
		return "typing"
	case EventStopTyping:
		return "stop_typing"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in a group.
type Event struct {
	Kind     EventKind
	GroupID  int64
	UserID   int64
	UserName string
	Message  Message // set for EventMessage
}

func presenceEvent(kind EventKind, c *Client) *Event {
	return &Event{
		Kind:     kind,
		GroupID:  c.GroupID,
		UserID:   c.UserID,
		UserName: c.Name,
	}
}
