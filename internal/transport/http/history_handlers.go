package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/proto"
	"github.com/studygroup/groupchat-server/internal/store"
)

// ChatReader is the read side of the chat service used by the HTTP API.
type ChatReader interface {
	IsMember(ctx context.Context, userID int64, role core.Role, groupID int64) (bool, error)
	History(ctx context.Context, groupID int64, limit, offset int) ([]core.Message, error)
	Online(ctx context.Context, groupID int64) ([]*store.OnlineUser, error)
}

// HistoryResponse is the body of GET /api/chat/history/:groupId.
type HistoryResponse struct {
	Success  bool                 `json:"success"`
	Messages []proto.EventMessage `json:"messages"`
}

// OnlineUser is one entry of the online list.
type OnlineUser struct {
	UserID   int64  `json:"user_id"`
	UserType string `json:"user_type"`
	UserName string `json:"user_name"`
	LastSeen string `json:"last_seen"`
}

// OnlineResponse is the body of GET /api/chat/online/:groupId.
type OnlineResponse struct {
	Success     bool         `json:"success"`
	OnlineUsers []OnlineUser `json:"online_users"`
}

// HistoryHandlers serves message history and online lists to group members.
type HistoryHandlers struct {
	chat ChatReader
	log  *zerolog.Logger
}

// NewHistoryHandlers creates the chat read handlers.
func NewHistoryHandlers(chat ChatReader, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{chat: chat, log: logger}
}

// History handles GET /api/chat/history/:groupId?limit=&offset=
func (h *HistoryHandlers) History(c *gin.Context) {
	groupID, ok := h.authorize(c)
	if !ok {
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		return
	}

	messages, err := h.chat.History(c.Request.Context(), groupID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("load history")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "Failed to load message history"})
		return
	}

	c.JSON(stdhttp.StatusOK, HistoryResponse{
		Success:  true,
		Messages: lo.Map(messages, func(m core.Message, _ int) proto.EventMessage { return messageToProto(m) }),
	})
}

// Online handles GET /api/chat/online/:groupId
func (h *HistoryHandlers) Online(c *gin.Context) {
	groupID, ok := h.authorize(c)
	if !ok {
		return
	}

	users, err := h.chat.Online(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("load online users")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "Failed to load online users"})
		return
	}

	c.JSON(stdhttp.StatusOK, OnlineResponse{
		Success: true,
		OnlineUsers: lo.Map(users, func(u *store.OnlineUser, _ int) OnlineUser {
			return OnlineUser{
				UserID:   u.UserID,
				UserType: string(u.UserType),
				UserName: u.UserName,
				LastSeen: u.LastSeen.UTC().Format(time.RFC3339),
			}
		}),
	})
}

// authorize parses the group id and checks the caller belongs to the group.
func (h *HistoryHandlers) authorize(c *gin.Context) (int64, bool) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return 0, false
	}

	groupID, err := parseGroupID(c.Param("groupId"))
	if err != nil {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return 0, false
	}

	member, err := h.chat.IsMember(c.Request.Context(), identity.UserID, identity.Role, groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("check membership")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: core.MsgMembershipFailed})
		return 0, false
	}
	if !member {
		c.JSON(stdhttp.StatusForbidden, ErrorResponse{Error: core.MsgNotMember})
		return 0, false
	}
	return groupID, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
