package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	tests := []struct {
		name    string
		inbound proto.Inbound
		want    core.Command
		wantErr string
	}{
		{
			name:    "send to bound group",
			inbound: proto.Inbound{Type: proto.InboundTypeSendMessage, Data: json.RawMessage(`{"content":"hi"}`)},
			want:    core.SendMessage{Content: "hi"},
		},
		{
			name: "send with attachment",
			inbound: proto.Inbound{Type: proto.InboundTypeSendMessage, Data: json.RawMessage(
				`{"group_id":4,"content":"see notes","attachment":{"name":"n.pdf","url":"/n.pdf","size":3}}`)},
			want: core.SendMessage{GroupID: 4, Content: "see notes", Attachment: &core.Attachment{Name: "n.pdf", URL: "/n.pdf", Size: 3}},
		},
		{
			name: "share file",
			inbound: proto.Inbound{Type: proto.InboundTypeShareFile, Data: json.RawMessage(
				`{"filename":"a.txt","file_url":"/a.txt","file_size":12}`)},
			want: core.ShareFile{FileName: "a.txt", FileURL: "/a.txt", FileSize: 12},
		},
		{
			name:    "typing without data",
			inbound: proto.Inbound{Type: proto.InboundTypeTyping},
			want:    core.Typing{},
		},
		{
			name:    "stop typing",
			inbound: proto.Inbound{Type: proto.InboundTypeStopTyping, Data: json.RawMessage(`{"group_id":2}`)},
			want:    core.StopTyping{GroupID: 2},
		},
		{
			name:    "send without data",
			inbound: proto.Inbound{Type: proto.InboundTypeSendMessage},
			wantErr: "data is required",
		},
		{
			name:    "attachment without url",
			inbound: proto.Inbound{Type: proto.InboundTypeSendMessage, Data: json.RawMessage(`{"content":"x","attachment":{"name":"n"}}`)},
			wantErr: "url is required",
		},
		{
			name:    "negative group",
			inbound: proto.Inbound{Type: proto.InboundTypeTyping, Data: json.RawMessage(`{"group_id":-1}`)},
			wantErr: "group_id must be at least 0",
		},
		{
			name:    "unknown type",
			inbound: proto.Inbound{Type: "hello"},
			wantErr: "unknown message type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, protoErr := inboundToCommand(tt.inbound)
			if tt.wantErr != "" {
				require.NotNil(t, protoErr)
				assert.Equal(t, core.ErrCodeBadRequest, protoErr.Code)
				assert.Contains(t, protoErr.Msg, tt.wantErr)
				return
			}
			require.Nil(t, protoErr)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestMalformedSendIsAcked(t *testing.T) {
	inbound := proto.Inbound{Type: proto.InboundTypeSendMessage, Ref: "r1", Data: json.RawMessage(`{"content":5}`)}
	_, protoErr := inboundToCommand(inbound)
	require.NotNil(t, protoErr)

	out := outboundFromReject(inbound, protoErr)
	assert.Equal(t, proto.Outbound{
		Type: proto.OutboundTypeAck,
		Ref:  "r1",
		Data: proto.AckData{Error: "content has the wrong type", Code: core.ErrCodeBadRequest},
	}, out)

	inbound = proto.Inbound{Type: proto.InboundTypeShareFile, Ref: "r2"}
	_, protoErr = inboundToCommand(inbound)
	require.NotNil(t, protoErr)
	out = outboundFromReject(inbound, protoErr)
	assert.Equal(t, proto.OutboundTypeAck, out.Type)
	assert.Equal(t, "data is required", out.Data.(proto.AckData).Error)

	inbound = proto.Inbound{Type: proto.InboundTypeTyping, Ref: "r3", Data: json.RawMessage(`{"group_id":"x"}`)}
	_, protoErr = inboundToCommand(inbound)
	require.NotNil(t, protoErr)
	out = outboundFromReject(inbound, protoErr)
	assert.Equal(t, proto.OutboundTypeError, out.Type)
	assert.Equal(t, "group_id has the wrong type", out.Error.Msg)
}

func TestOutboundFromEvent(t *testing.T) {
	sentAt := time.Date(2024, 3, 1, 13, 30, 0, 0, time.FixedZone("CET", 3600))
	out := outboundFromEvent(&core.Event{
		Kind:    core.EventMessage,
		GroupID: 1,
		Message: core.Message{ID: 5, GroupID: 1, SenderID: 2, SenderRole: core.RoleFaculty, SenderName: "Grace Hopper", Content: "hi", SentAt: sentAt},
	})
	assert.Equal(t, proto.OutboundTypeEvent, out.Type)
	assert.Equal(t, proto.EventNameMessage, out.Event)
	msg := out.Data.(proto.EventMessage)
	assert.Equal(t, "2024-03-01T12:30:00Z", msg.SentAt)
	assert.Equal(t, "faculty", msg.SenderType)
	assert.Nil(t, msg.Attachment)

	out = outboundFromEvent(&core.Event{Kind: core.EventUserLeft, GroupID: 1, UserID: 2, UserName: "Bob"})
	assert.Equal(t, proto.EventNameUserLeft, out.Event)
	assert.Equal(t, proto.EventPresence{UserID: 2, UserName: "Bob"}, out.Data)
}

func TestOutboundFromAck(t *testing.T) {
	out := outboundFromAck("r1", core.Ack{Success: true, MessageID: 9})
	assert.Equal(t, proto.Outbound{Type: proto.OutboundTypeAck, Ref: "r1", Data: proto.AckData{Success: true, MessageID: 9}}, out)

	out = outboundFromAck("r2", core.Ack{Err: &core.CoreError{Code: core.ErrCodeRateLimited, Message: core.MsgMessageRateLimited}})
	data := out.Data.(proto.AckData)
	assert.False(t, data.Success)
	assert.Equal(t, core.ErrCodeRateLimited, data.Code)
}
