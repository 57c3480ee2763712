package core

import (
	"fmt"
	"sort"
)

// Registry maps live connections to their identity and group channel.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Registry struct {
	clients map[string]*Client
	rooms   map[int64]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		rooms:   make(map[int64]*Room),
	}
}

// Register records a connection under its group.
func (r *Registry) Register(c *Client) error {
	if _, exists := r.clients[c.ID]; exists {
		return fmt.Errorf("register %s: %w", c.ID, ErrDuplicateConnection)
	}
	r.clients[c.ID] = c

	room, ok := r.rooms[c.GroupID]
	if !ok {
		room = NewRoom(c.GroupID)
		r.rooms[c.GroupID] = room
	}
	room.AddClient(c)
	return nil
}

// Unregister removes a connection. It is a no-op for unknown ids and reports
// whether anything was removed.
func (r *Registry) Unregister(id string) (*Client, bool) {
	c, exists := r.clients[id]
	if !exists {
		return nil, false
	}
	delete(r.clients, id)

	if room, ok := r.rooms[c.GroupID]; ok {
		room.RemoveClient(id)
		if room.Empty() {
			delete(r.rooms, c.GroupID)
		}
	}
	return c, true
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// Room returns the channel for a group, or nil when nobody is connected to it.
func (r *Registry) Room(groupID int64) *Room {
	return r.rooms[groupID]
}

// ListByGroup returns the connections currently bound to a group.
func (r *Registry) ListByGroup(groupID int64) []*Client {
	room, ok := r.rooms[groupID]
	if !ok {
		return nil
	}
	return room.Clients()
}

// All returns every registered connection ordered by id.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return len(r.clients)
}
