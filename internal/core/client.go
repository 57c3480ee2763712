package core

const defaultClientBuffer = 32

// Client is a live real-time connection as seen by the core layer.
// It is bound to a single group channel for its whole lifetime.
type Client struct {
	ID      string
	UserID  int64
	Role    Role
	Name    string
	GroupID int64
	Events  chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string, identity Identity, groupID int64, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	name := identity.Name
	if name == "" {
		name = id
	}
	return &Client{
		ID:      id,
		UserID:  identity.UserID,
		Role:    identity.Role,
		Name:    name,
		GroupID: groupID,
		Events:  make(chan *Event, buffer),
	}
}

// Identity returns the actor behind the connection.
func (c *Client) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, Name: c.Name}
}
