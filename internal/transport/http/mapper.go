package http

import (
	"time"

	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/proto"
)

// inboundToCommand decodes a client frame. A non-nil *proto.Error means the
// frame was rejected and should be answered with an error frame.
func inboundToCommand(inbound proto.Inbound) (core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := proto.Decode(inbound.Data, &data); err != nil {
			return nil, badRequestFrame(err)
		}
		cmd := core.SendMessage{GroupID: data.GroupID, Content: data.Content}
		if a := data.Attachment; a != nil {
			cmd.Attachment = &core.Attachment{Name: a.Name, URL: a.URL, Size: a.Size}
		}
		return cmd, nil
	case proto.InboundTypeShareFile:
		var data proto.ShareFileData
		if err := proto.Decode(inbound.Data, &data); err != nil {
			return nil, badRequestFrame(err)
		}
		return core.ShareFile{
			GroupID:  data.GroupID,
			FileName: data.FileName,
			FileURL:  data.FileURL,
			FileSize: data.FileSize,
		}, nil
	case proto.InboundTypeTyping, proto.InboundTypeStopTyping:
		var data proto.TypingData
		// typing frames may omit data entirely
		if len(inbound.Data) > 0 {
			if err := proto.Decode(inbound.Data, &data); err != nil {
				return nil, badRequestFrame(err)
			}
		}
		if inbound.Type == proto.InboundTypeTyping {
			return core.Typing{GroupID: data.GroupID}, nil
		}
		return core.StopTyping{GroupID: data.GroupID}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

func badRequestFrame(err error) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
}

// outboundFromReject answers a frame inboundToCommand refused. Sends and file
// shares always get an ack so the client can settle its pending request;
// anything else gets an error frame.
func outboundFromReject(inbound proto.Inbound, e *proto.Error) proto.Outbound {
	switch inbound.Type {
	case proto.InboundTypeSendMessage, proto.InboundTypeShareFile:
		return outboundFromAck(inbound.Ref, core.Ack{Err: &core.CoreError{Code: e.Code, Message: e.Msg}})
	default:
		return outboundError(inbound.Ref, e)
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  messageToProto(event.Message),
		}
	case core.EventUserJoined, core.EventUserLeft, core.EventTyping, core.EventStopTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data: proto.EventPresence{
				UserID:   event.UserID,
				UserName: event.UserName,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}
	}
}

func outboundFromAck(ref string, ack core.Ack) proto.Outbound {
	data := proto.AckData{Success: ack.Success, MessageID: ack.MessageID}
	if ack.Err != nil {
		data.Error = ack.Err.Message
		data.Code = ack.Err.Code
	}
	return proto.Outbound{Type: proto.OutboundTypeAck, Ref: ref, Data: data}
}

func outboundError(ref string, e *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Ref: ref, Error: e}
}

func messageToProto(m core.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:         m.ID,
		GroupID:    m.GroupID,
		SenderID:   m.SenderID,
		SenderType: string(m.SenderRole),
		SenderName: m.SenderName,
		Content:    m.Content,
		SentAt:     m.SentAt.UTC().Format(time.RFC3339),
	}
	if a := m.Attachment; a != nil {
		out.Attachment = &proto.Attachment{Name: a.Name, URL: a.URL, Size: a.Size}
	}
	return out
}
