package core

import "sort"

// Room is a group channel: the set of connections bound to one group.
type Room struct {
	GroupID int64
	clients map[string]*Client
}

// NewRoom constructs a room with no clients.
func NewRoom(groupID int64) *Room {
	return &Room{
		GroupID: groupID,
		clients: make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(id string) bool {
	if _, exists := r.clients[id]; !exists {
		return false
	}
	delete(r.clients, id)
	return true
}

// Clients returns the room's connections ordered by id.
func (r *Room) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Broadcast sends an event to every client in the room except excludeID.
// Delivery never blocks: a client whose buffer is full misses the event.
// It returns the number of delivered and dropped events.
func (r *Room) Broadcast(event *Event, excludeID string) (delivered, dropped int) {
	for id, client := range r.clients {
		if id == excludeID {
			continue
		}
		select {
		case client.Events <- event:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
