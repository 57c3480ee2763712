package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SharedFilePrefix prefixes the persisted content of a file share.
const SharedFilePrefix = "Shared file: "

// Options tunes the hub.
type Options struct {
	ConnectionLimit     int
	MessageLimit        int
	RateWindow          time.Duration
	TypingTimeout       time.Duration // 0 disables the server-side typing sweep
	TypingSweepInterval time.Duration
	EchoToSender        bool
	Clock               func() time.Time
}

// DefaultOptions returns the production limits.
func DefaultOptions() Options {
	return Options{
		ConnectionLimit:     5,
		MessageLimit:        10,
		RateWindow:          time.Minute,
		TypingTimeout:       5 * time.Second,
		TypingSweepInterval: time.Second,
		Clock:               time.Now,
	}
}

// Stats is a point-in-time view of hub state.
type Stats struct {
	Connections int
	TypingUsers int
	RateBuckets int
}

type admission struct {
	identity Identity
	groupID  int64
	reply    chan error
}

type registration struct {
	client *Client
	reply  chan error
}

type request struct {
	client *Client
	cmd    Command
	reply  chan Ack
}

type onlineWrite struct {
	groupID int64
	userID  int64
	role    Role
	online  bool
}

// Hub is the reactor that owns every piece of in-memory chat state.
// Only the Run goroutine touches the registry, presence and limiter; store I/O
// runs on worker goroutines whose continuations are handed back to Run.
type Hub struct {
	chat ChatService
	opts Options
	log  *zerolog.Logger

	registry    *Registry
	broadcaster *Broadcaster
	presence    *Presence
	limiter     *RateLimiter
	validator   *Validator

	admissions    chan admission
	registrations chan registration
	unregister    chan *Client
	requests      chan request
	completions   chan func()
	stats         chan chan Stats
	onlineWrites  chan onlineWrite

	ctx     context.Context
	workers sync.WaitGroup
	done    chan struct{}
	stopped chan struct{}
}

// NewHub creates a hub backed by chat. A nil logger disables logging.
func NewHub(chat ChatService, opts Options, logger *zerolog.Logger) (*Hub, error) {
	if chat == nil {
		return nil, fmt.Errorf("new hub: chat service is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	defaults := DefaultOptions()
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaults.RateWindow
	}
	if opts.TypingSweepInterval <= 0 {
		opts.TypingSweepInterval = defaults.TypingSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("new hub: %w", err)
	}

	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, logger)

	return &Hub{
		chat:        chat,
		opts:        opts,
		log:         logger,
		registry:    registry,
		broadcaster: broadcaster,
		presence:    NewPresence(broadcaster),
		limiter: NewRateLimiter(opts.RateWindow, map[ActionClass]int{
			ActionConnection: opts.ConnectionLimit,
			ActionMessage:    opts.MessageLimit,
		}),
		validator:     validator,
		admissions:    make(chan admission),
		registrations: make(chan registration),
		unregister:    make(chan *Client, 64),
		requests:      make(chan request, 64),
		completions:   make(chan func(), 64),
		stats:         make(chan chan Stats),
		onlineWrites:  make(chan onlineWrite, 256),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}, nil
}

// Run processes hub events until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx

	sweep := time.NewTicker(h.opts.RateWindow)
	defer sweep.Stop()

	var typingTick <-chan time.Time
	if h.opts.TypingTimeout > 0 {
		ticker := time.NewTicker(h.opts.TypingSweepInterval)
		defer ticker.Stop()
		typingTick = ticker.C
	}

	h.workers.Add(1)
	go h.writeOnlineStatus(ctx)

	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case a := <-h.admissions:
			h.handleAdmission(a)
		case reg := <-h.registrations:
			reg.reply <- h.handleRegister(reg.client)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case req := <-h.requests:
			h.handleCommand(req)
		case next := <-h.completions:
			next()
		case reply := <-h.stats:
			reply <- Stats{
				Connections: h.registry.Len(),
				TypingUsers: h.presence.TypingCount(),
				RateBuckets: h.limiter.Len(),
			}
		case <-sweep.C:
			if removed := h.limiter.Sweep(h.now()); removed > 0 {
				h.log.Debug().Int("buckets", removed).Msg("rate limit buckets expired")
			}
		case <-typingTick:
			if expired := h.presence.Expire(h.now(), h.opts.TypingTimeout); expired > 0 {
				h.log.Debug().Int("count", expired).Msg("stale typing states expired")
			}
		}
	}
}

// Done is closed once the hub stops processing events.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Stopped is closed after Done, once in-flight store work has returned.
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}

// Admit gates a handshake: the connection rate limit for the actor, then the
// membership check for the target group. A rejection is returned as *CoreError.
func (h *Hub) Admit(ctx context.Context, identity Identity, groupID int64) error {
	a := admission{identity: identity, groupID: groupID, reply: make(chan error, 1)}
	if err := submit(ctx, h, h.admissions, a); err != nil {
		return err
	}
	result, err := await(ctx, h, a.reply)
	if err != nil {
		return err
	}
	return result
}

// Register records an admitted connection and announces it to its group.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	reg := registration{client: c, reply: make(chan error, 1)}
	if err := submit(ctx, h, h.registrations, reg); err != nil {
		return err
	}
	result, err := await(ctx, h, reg.reply)
	if err != nil {
		return err
	}
	return result
}

// Unregister removes a connection. Calling it more than once is harmless.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch hands a client command to the hub and waits for its ack.
// The returned error is non-nil only when the hub or ctx stopped first.
func (h *Hub) Dispatch(ctx context.Context, c *Client, cmd Command) (Ack, error) {
	req := request{client: c, cmd: cmd, reply: make(chan Ack, 1)}
	if err := submit(ctx, h, h.requests, req); err != nil {
		return Ack{}, err
	}
	return await(ctx, h, req.reply)
}

// Stats returns connection and typing counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := submit(ctx, h, h.stats, reply); err != nil {
		return Stats{}, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) handleAdmission(a admission) {
	if !h.limiter.Allow(a.identity.UserID, ActionConnection, h.now()) {
		h.log.Debug().Int64("user_id", a.identity.UserID).Msg("connection throttled")
		a.reply <- coreError(ErrCodeRateLimited, MsgConnectRateLimited)
		return
	}
	h.async(func(ctx context.Context) func() {
		if cerr := h.checkMembership(ctx, a.identity, a.groupID); cerr != nil {
			a.reply <- cerr
		} else {
			a.reply <- nil
		}
		return nil
	})
}

func (h *Hub) handleRegister(c *Client) error {
	if err := h.registry.Register(c); err != nil {
		h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("register rejected")
		return &CoreError{Code: ErrCodeDuplicate, Message: err.Error(), Err: err}
	}
	if h.presence.Join(c) {
		h.recordOnline(c, true)
	}
	h.log.Info().
		Str("conn_id", c.ID).
		Int64("user_id", c.UserID).
		Int64("group_id", c.GroupID).
		Int("connections", h.registry.Len()).
		Msg("client connected")
	return nil
}

func (h *Hub) handleUnregister(c *Client) {
	if _, removed := h.registry.Unregister(c.ID); !removed {
		return
	}
	if h.presence.Leave(c) {
		h.recordOnline(c, false)
	}
	close(c.Events)
	h.log.Info().
		Str("conn_id", c.ID).
		Int64("user_id", c.UserID).
		Int64("group_id", c.GroupID).
		Int("connections", h.registry.Len()).
		Msg("client disconnected")
}

func (h *Hub) handleCommand(req request) {
	c := req.client
	if _, ok := h.registry.Get(c.ID); !ok {
		req.reply <- ackFail(ErrCodeBadRequest, "connection is not registered")
		return
	}

	switch cmd := req.cmd.(type) {
	case SendMessage:
		h.handleSend(req, NewMessage{
			GroupID:    groupOrDefault(c, cmd.GroupID),
			SenderID:   c.UserID,
			SenderRole: c.Role,
			Content:    cmd.Content,
			Attachment: cmd.Attachment,
		})
	case ShareFile:
		h.handleSend(req, NewMessage{
			GroupID:    groupOrDefault(c, cmd.GroupID),
			SenderID:   c.UserID,
			SenderRole: c.Role,
			Content:    SharedFilePrefix + cmd.FileName,
			Attachment: &Attachment{Name: cmd.FileName, URL: cmd.FileURL, Size: cmd.FileSize},
		})
	case Typing:
		if groupOrDefault(c, cmd.GroupID) != c.GroupID {
			req.reply <- ackFail(ErrCodeBadRequest, MsgWrongGroup)
			return
		}
		h.presence.Typing(c, h.now())
		req.reply <- ackOK(0)
	case StopTyping:
		if groupOrDefault(c, cmd.GroupID) != c.GroupID {
			req.reply <- ackFail(ErrCodeBadRequest, MsgWrongGroup)
			return
		}
		h.presence.StopTyping(c)
		req.reply <- ackOK(0)
	default:
		req.reply <- ackFail(ErrCodeBadRequest, fmt.Sprintf("unsupported command %T", cmd))
	}
}

// handleSend runs the in-memory gates on the hub, then membership and persistence
// on a worker, then the broadcast back on the hub.
func (h *Hub) handleSend(req request, msg NewMessage) {
	c := req.client
	if !h.limiter.Allow(c.UserID, ActionMessage, h.now()) {
		h.log.Debug().Int64("user_id", c.UserID).Msg("message throttled")
		req.reply <- ackFail(ErrCodeRateLimited, MsgMessageRateLimited)
		return
	}
	if err := h.validator.Validate(msg.Content); err != nil {
		h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("message rejected by validator")
		req.reply <- ackFail(ErrCodeInvalidContent, validationMessage(err))
		return
	}

	h.async(func(ctx context.Context) func() {
		if cerr := h.checkMembership(ctx, c.Identity(), msg.GroupID); cerr != nil {
			req.reply <- Ack{Err: cerr}
			return nil
		}

		stored, err := h.chat.Persist(ctx, msg)
		if err != nil {
			h.log.Error().Err(err).
				Int64("user_id", c.UserID).
				Int64("group_id", msg.GroupID).
				Msg("failed to persist message")
			req.reply <- ackFail(ErrCodePersistFailed, MsgPersistFailed)
			return nil
		}

		return func() {
			exclude := c.ID
			if h.opts.EchoToSender {
				exclude = ""
			}
			h.broadcaster.Broadcast(stored.GroupID, &Event{
				Kind:     EventMessage,
				GroupID:  stored.GroupID,
				UserID:   stored.SenderID,
				UserName: stored.SenderName,
				Message:  stored,
			}, exclude)
			req.reply <- ackOK(stored.ID)
		}
	})
}

func (h *Hub) checkMembership(ctx context.Context, id Identity, groupID int64) *CoreError {
	ok, err := h.chat.IsMember(ctx, id.UserID, id.Role, groupID)
	if err != nil {
		h.log.Error().Err(err).
			Int64("user_id", id.UserID).
			Int64("group_id", groupID).
			Msg("membership check failed")
		return coreError(ErrCodeStoreFailed, MsgMembershipFailed)
	}
	if !ok {
		h.log.Warn().
			Int64("user_id", id.UserID).
			Str("role", string(id.Role)).
			Int64("group_id", groupID).
			Msg("rejected action from non-member")
		return coreError(ErrCodeNotMember, MsgNotMember)
	}
	return nil
}

// async runs work on a worker goroutine. A non-nil continuation returned by
// work is executed on the hub goroutine.
func (h *Hub) async(work func(ctx context.Context) func()) {
	h.workers.Add(1)
	go func() {
		defer h.workers.Done()
		next := work(h.ctx)
		if next == nil {
			return
		}
		select {
		case h.completions <- next:
		case <-h.done:
		}
	}()
}

// recordOnline queues an online status write. Writes go through a single
// goroutine so a quick connect/disconnect cannot land out of order.
func (h *Hub) recordOnline(c *Client, online bool) {
	w := onlineWrite{groupID: c.GroupID, userID: c.UserID, role: c.Role, online: online}
	select {
	case h.onlineWrites <- w:
	default:
		h.log.Warn().Int64("user_id", c.UserID).Msg("online status queue full, dropping update")
	}
}

func (h *Hub) writeOnlineStatus(ctx context.Context) {
	defer h.workers.Done()
	for {
		select {
		case w := <-h.onlineWrites:
			if err := h.chat.SetOnline(ctx, w.groupID, w.userID, w.role, w.online); err != nil {
				h.log.Warn().Err(err).
					Int64("user_id", w.userID).
					Int64("group_id", w.groupID).
					Msg("failed to record online status")
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for _, c := range h.registry.All() {
		h.registry.Unregister(c.ID)
		close(c.Events)
	}
	h.workers.Wait()
	close(h.stopped)
}

func (h *Hub) now() time.Time {
	return h.opts.Clock()
}

func groupOrDefault(c *Client, groupID int64) int64 {
	if groupID == 0 {
		return c.GroupID
	}
	return groupID
}

func submit[T any](ctx context.Context, h *Hub, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, ch <-chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-h.done:
		var zero T
		return zero, ErrHubStopped
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
