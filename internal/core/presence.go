package core

import "time"

type typingState struct {
	client       *Client
	lastTypingAt time.Time
}

type onlineKey struct {
	groupID int64
	userID  int64
	role    Role
}

// Presence derives online and typing state from registry events and announces
// it through the broadcaster. Announcements never reach the originating connection.
// It is owned by the hub goroutine.
type Presence struct {
	bc     *Broadcaster
	typing map[string]typingState // by connection id
	online map[onlineKey]int      // live connections per actor and group
}

// NewPresence creates a tracker that announces through bc.
func NewPresence(bc *Broadcaster) *Presence {
	return &Presence{
		bc:     bc,
		typing: make(map[string]typingState),
		online: make(map[onlineKey]int),
	}
}

// Join announces a registered connection to the rest of its group.
// It reports whether the actor just came online in that group.
func (p *Presence) Join(c *Client) bool {
	p.bc.Broadcast(c.GroupID, presenceEvent(EventUserJoined, c), c.ID)

	key := onlineKey{groupID: c.GroupID, userID: c.UserID, role: c.Role}
	p.online[key]++
	return p.online[key] == 1
}

// Leave announces an unregistered connection and clears its typing state.
// It reports whether the actor's last connection to the group is gone.
func (p *Presence) Leave(c *Client) bool {
	delete(p.typing, c.ID)
	p.bc.Broadcast(c.GroupID, presenceEvent(EventUserLeft, c), c.ID)

	key := onlineKey{groupID: c.GroupID, userID: c.UserID, role: c.Role}
	p.online[key]--
	if p.online[key] > 0 {
		return false
	}
	delete(p.online, key)
	return true
}

// Typing supersedes the connection's typing state and notifies the group.
func (p *Presence) Typing(c *Client, now time.Time) {
	p.typing[c.ID] = typingState{client: c, lastTypingAt: now}
	p.bc.Broadcast(c.GroupID, presenceEvent(EventTyping, c), c.ID)
}

// StopTyping clears the connection's typing state and notifies the group.
func (p *Presence) StopTyping(c *Client) {
	delete(p.typing, c.ID)
	p.bc.Broadcast(c.GroupID, presenceEvent(EventStopTyping, c), c.ID)
}

// Expire emits stop_typing for every typing state last refreshed at or before
// now-timeout and returns how many were cleared.
func (p *Presence) Expire(now time.Time, timeout time.Duration) int {
	cutoff := now.Add(-timeout)
	expired := 0
	for id, state := range p.typing {
		if state.lastTypingAt.After(cutoff) {
			continue
		}
		delete(p.typing, id)
		p.bc.Broadcast(state.client.GroupID, presenceEvent(EventStopTyping, state.client), id)
		expired++
	}
	return expired
}

// isOnline reports whether the actor has a live connection to the group.
func (p *Presence) isOnline(groupID, userID int64, role Role) bool {
	return p.online[onlineKey{groupID: groupID, userID: userID, role: role}] > 0
}

// TypingCount returns the number of connections currently typing.
func (p *Presence) TypingCount() int {
	return len(p.typing)
}
