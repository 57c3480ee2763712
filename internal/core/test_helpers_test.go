package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of kind arrives within wait.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memberKey struct {
	userID  int64
	role    Role
	groupID int64
}

type onlineCall struct {
	groupID int64
	userID  int64
	online  bool
}

// fakeChat is an in-memory ChatService. Persist can be gated per message
// content to control completion order.
type fakeChat struct {
	mu         sync.Mutex
	members    map[memberKey]bool
	names      map[int64]string
	nextID     int64
	persisted  []Message
	online     []onlineCall
	persistErr error
	memberErr  error
	gates      map[string]persistGate
}

type persistGate struct {
	entered chan struct{}
	release chan struct{}
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		members: make(map[memberKey]bool),
		names:   make(map[int64]string),
		gates:   make(map[string]persistGate),
	}
}

func (f *fakeChat) addMember(userID int64, role Role, groupID int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[memberKey{userID: userID, role: role, groupID: groupID}] = true
	f.names[userID] = name
}

// gate holds Persist for content until release is closed. entered is closed
// once the worker reaches the gate.
func (f *fakeChat) gate(content string) persistGate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := persistGate{entered: make(chan struct{}), release: make(chan struct{})}
	f.gates[content] = g
	return g
}

func (f *fakeChat) IsMember(_ context.Context, userID int64, role Role, groupID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return f.members[memberKey{userID: userID, role: role, groupID: groupID}], nil
}

func (f *fakeChat) Persist(ctx context.Context, msg NewMessage) (Message, error) {
	f.mu.Lock()
	gate, gated := f.gates[msg.Content]
	f.mu.Unlock()
	if gated {
		close(gate.entered)
		select {
		case <-gate.release:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return Message{}, f.persistErr
	}
	f.nextID++
	name, ok := f.names[msg.SenderID]
	if !ok {
		name = "Unknown"
	}
	stored := Message{
		ID:         f.nextID,
		GroupID:    msg.GroupID,
		SenderID:   msg.SenderID,
		SenderRole: msg.SenderRole,
		SenderName: name,
		Content:    msg.Content,
		Attachment: msg.Attachment,
		SentAt:     time.Now().UTC(),
	}
	f.persisted = append(f.persisted, stored)
	return stored, nil
}

func (f *fakeChat) SetOnline(_ context.Context, groupID, userID int64, _ Role, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = append(f.online, onlineCall{groupID: groupID, userID: userID, online: online})
	return nil
}

func (f *fakeChat) persistedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persisted)
}

func (f *fakeChat) onlineCalls() []onlineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]onlineCall(nil), f.online...)
}

var errStoreDown = errors.New("store unavailable")

// startHub runs a hub until the test ends.
func startHub(t *testing.T, chat ChatService, mutate func(*Options)) *Hub {
	t.Helper()

	opts := DefaultOptions()
	opts.TypingTimeout = 0
	if mutate != nil {
		mutate(&opts)
	}
	hub, err := NewHub(chat, opts, nil)
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Stopped()
	})
	return hub
}

// connect admits and registers a client the way the transport does.
func connect(t *testing.T, hub *Hub, id string, identity Identity, groupID int64) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := hub.Admit(ctx, identity, groupID); err != nil {
		t.Fatalf("admit %s: %v", id, err)
	}
	c := NewClient(id, identity, groupID, 0)
	if err := hub.Register(ctx, c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return c
}

func dispatch(t *testing.T, hub *Hub, c *Client, cmd Command) Ack {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ack, err := hub.Dispatch(ctx, c, cmd)
	if err != nil {
		t.Fatalf("dispatch %T: %v", cmd, err)
	}
	return ack
}
