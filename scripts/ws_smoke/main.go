package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/studygroup/groupchat-server/internal/proto"
)

// outbound mirrors proto.Outbound with the payload left raw for decoding by kind.
type outbound struct {
	Type  string          `json:"type"`
	Ref   string          `json:"ref"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	userID := flag.Int64("user-id", 1, "user id")
	userType := flag.String("user-type", "student", "student or faculty")
	userName := flag.String("user-name", "Smoke Tester", "display name")
	groupID := flag.Int64("group", 1, "study group id")
	token := flag.String("token", "", "signed token, when the server requires one")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	q := url.Values{}
	q.Set("groupId", fmt.Sprint(*groupID))
	if *token != "" {
		q.Set("token", *token)
	} else {
		q.Set("userId", fmt.Sprint(*userID))
		q.Set("userType", *userType)
		q.Set("userName", *userName)
	}

	conn, resp, err := websocket.Dial(ctx, *addr+"?"+q.Encode(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	payload, err := json.Marshal(proto.SendMessageData{Content: *text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Ref: "smoke", Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", out.Type)
		if out.Event != "" {
			fmt.Printf(" event=%s", out.Event)
		}
		fmt.Println()

		switch out.Type {
		case proto.OutboundTypeError:
			if out.Error == nil {
				return fmt.Errorf("server error")
			}
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		case proto.OutboundTypeAck:
			var ack proto.AckData
			if err := json.Unmarshal(out.Data, &ack); err != nil {
				return fmt.Errorf("unmarshal ack: %w", err)
			}
			if !ack.Success {
				return fmt.Errorf("send rejected (%s): %s", ack.Code, ack.Error)
			}
			fmt.Printf("Ack: message_id=%d\n", ack.MessageID)
			return nil
		case proto.OutboundTypeEvent:
			var evt proto.EventPresence
			if err := json.Unmarshal(out.Data, &evt); err == nil && evt.UserID != 0 {
				fmt.Printf("Presence: %s user=%d name=%s\n", out.Event, evt.UserID, evt.UserName)
			}
		}
	}
}
