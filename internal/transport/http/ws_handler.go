package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/studygroup/groupchat-server/internal/config"
	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/proto"
	"github.com/studygroup/groupchat-server/internal/utils"
)

const writeTimeout = 10 * time.Second

var errHubClosed = errors.New("hub closed the connection")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub          *core.Hub
	identity     *IdentityResolver
	readLimit    int64
	clientBuffer int
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, identity *IdentityResolver, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:          hub,
		identity:     identity,
		readLimit:    cfg.MaxMessageBytes,
		clientBuffer: cfg.ClientBuffer,
		log:          logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	identity, err := h.identity.Resolve(r)
	if err != nil {
		writeJSONError(w, identityStatus(err), err.Error())
		return
	}
	if identity.Name == "" {
		writeJSONError(w, stdhttp.StatusBadRequest, "userName is required")
		return
	}
	groupID, err := parseGroupID(r.URL.Query().Get("groupId"))
	if err != nil {
		writeJSONError(w, identityStatus(err), err.Error())
		return
	}

	if err := h.hub.Admit(ctx, identity, groupID); err != nil {
		status, reason := admitFailure(err)
		h.log.Info().
			Int64("user_id", identity.UserID).
			Int64("group_id", groupID).
			Int("status", status).
			Msg("ws handshake rejected")
		writeJSONError(w, status, reason)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(utils.NewID(), identity, groupID, h.clientBuffer)
	if err := h.hub.Register(ctx, client); err != nil {
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("register client")
		conn.Close(websocket.StatusTryAgainLater, "server unavailable")
		return
	}
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF):
	case errors.Is(err, errHubClosed), errors.Is(err, core.ErrHubStopped):
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	default:
		if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
			break
		}
		status = websocket.StatusInternalError
		reason = "internal error"
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("malformed frame")
			if err := h.write(ctx, conn, outboundError("", &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid message format"})); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := h.write(ctx, conn, outboundFromReject(inbound, protoErr)); err != nil {
				return err
			}
			continue
		}

		ack, err := h.hub.Dispatch(ctx, client, cmd)
		if err != nil {
			return err
		}

		switch cmd.(type) {
		case core.SendMessage, core.ShareFile:
			err = h.write(ctx, conn, outboundFromAck(inbound.Ref, ack))
		default:
			if ack.Err != nil {
				err = h.write(ctx, conn, outboundError(inbound.Ref, &proto.Error{Code: ack.Err.Code, Msg: ack.Err.Message}))
			}
		}
		if err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				// close here so the status reaches the peer before Read is cancelled
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return errHubClosed
			}
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, out proto.Outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, out)
}

// admitFailure maps a handshake rejection to an HTTP status and reason.
func admitFailure(err error) (int, string) {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		switch coreErr.Code {
		case core.ErrCodeRateLimited:
			return stdhttp.StatusTooManyRequests, coreErr.Message
		case core.ErrCodeNotMember:
			return stdhttp.StatusForbidden, coreErr.Message
		case core.ErrCodeStoreFailed:
			return stdhttp.StatusInternalServerError, coreErr.Message
		default:
			return stdhttp.StatusBadRequest, coreErr.Message
		}
	}
	if errors.Is(err, core.ErrHubStopped) {
		return stdhttp.StatusServiceUnavailable, "server is shutting down"
	}
	return stdhttp.StatusInternalServerError, "internal error"
}

func writeJSONError(w stdhttp.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: reason})
}
