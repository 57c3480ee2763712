package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/samber/lo/mutable"
	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/store"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// ErrUnknownRole is returned for an actor role the store has no table for.
var ErrUnknownRole = errors.New("unknown role")

// Options configures the service.
type Options struct {
	DefaultHistoryLimit int
	MaxHistoryLimit     int
	Clock               func() time.Time
}

// Service is the durable-store side of the chat core: membership, message
// persistence and history, and persisted online status.
type Service struct {
	store        store.Store
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

var _ core.ChatService = (*Service)(nil)

// New creates a chat service over st.
func New(st store.Store, opts Options) *Service {
	s := &Service{
		store:        st,
		defaultLimit: opts.DefaultHistoryLimit,
		maxLimit:     opts.MaxHistoryLimit,
		now:          opts.Clock,
	}
	if s.maxLimit <= 0 {
		s.maxLimit = MaxHistoryLimit
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = DefaultHistoryLimit
	}
	s.defaultLimit = min(s.defaultLimit, s.maxLimit)
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IsMember checks a student's membership row or a faculty member's mentorship.
func (s *Service) IsMember(ctx context.Context, userID int64, role core.Role, groupID int64) (bool, error) {
	switch role {
	case core.RoleStudent:
		return s.store.IsGroupMember(ctx, userID, groupID)
	case core.RoleFaculty:
		return s.store.IsGroupMentor(ctx, userID, groupID)
	default:
		return false, fmt.Errorf("membership for %q: %w", role, ErrUnknownRole)
	}
}

// Persist stores msg stamped with the current time and reads it back with the
// sender's display name.
func (s *Service) Persist(ctx context.Context, msg core.NewMessage) (core.Message, error) {
	row := &store.Message{
		GroupID:    msg.GroupID,
		SenderID:   msg.SenderID,
		SenderType: store.UserType(msg.SenderRole),
		Content:    msg.Content,
		SentAt:     s.now().UTC(),
	}
	if a := msg.Attachment; a != nil {
		row.Attachment = &store.Attachment{Name: a.Name, URL: a.URL, Size: a.Size}
	}

	if err := s.store.SaveMessage(ctx, row); err != nil {
		return core.Message{}, fmt.Errorf("persist message: %w", err)
	}

	stored, err := s.store.GetMessage(ctx, row.ID)
	if err != nil {
		return core.Message{}, fmt.Errorf("reload message %d: %w", row.ID, err)
	}
	return toCore(stored), nil
}

// SetOnline records the actor's online status for a group.
func (s *Service) SetOnline(ctx context.Context, groupID, userID int64, role core.Role, online bool) error {
	return s.store.SetOnlineStatus(ctx, userID, store.UserType(role), groupID, online, s.now())
}

// History returns a page of a group's messages in chronological order.
// The page is counted back from the newest message; limit is clamped to the
// configured maximum and falls back to the default when not positive.
func (s *Service) History(ctx context.Context, groupID int64, limit, offset int) ([]core.Message, error) {
	rows, err := s.store.ListMessages(ctx, groupID, s.clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	mutable.Reverse(rows)
	return lo.Map(rows, func(m *store.Message, _ int) core.Message {
		return toCore(m)
	}), nil
}

// Online lists the actors marked online in a group.
func (s *Service) Online(ctx context.Context, groupID int64) ([]*store.OnlineUser, error) {
	users, err := s.store.ListOnline(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return users, nil
}

// ResetPresence marks every actor offline. It runs at startup, before any
// connection is accepted, since no connection survives a restart.
func (s *Service) ResetPresence(ctx context.Context) (int64, error) {
	return s.store.ResetOnlineStatus(ctx, s.now())
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	return min(limit, s.maxLimit)
}

func toCore(m *store.Message) core.Message {
	msg := core.Message{
		ID:         m.ID,
		GroupID:    m.GroupID,
		SenderID:   m.SenderID,
		SenderRole: core.Role(m.SenderType),
		SenderName: m.SenderName,
		Content:    m.Content,
		SentAt:     m.SentAt,
	}
	if a := m.Attachment; a != nil {
		msg.Attachment = &core.Attachment{Name: a.Name, URL: a.URL, Size: a.Size}
	}
	return msg
}
