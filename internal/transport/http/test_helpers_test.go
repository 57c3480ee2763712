package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/studygroup/groupchat-server/internal/config"
	"github.com/studygroup/groupchat-server/internal/core"
	"github.com/studygroup/groupchat-server/internal/proto"
	"github.com/studygroup/groupchat-server/internal/service/chat"
	"github.com/studygroup/groupchat-server/internal/store/sqlite"
)

// testEnv is a running server over an in-memory store with two groups:
// Alice, Bob and mentor Hopper in groupA; Carol in groupB.
type testEnv struct {
	server *httptest.Server
	hub    *core.Hub
	store  *sqlite.SQLiteStore
	cancel context.CancelFunc

	alice, bob, carol, mentor int64
	groupA, groupB            int64
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)

	env := &testEnv{store: st}
	ctx := context.Background()
	env.alice, err = st.CreateStudent(ctx, "Alice Park", "alice@uni.test")
	require.NoError(t, err)
	env.bob, err = st.CreateStudent(ctx, "Bob Chen", "bob@uni.test")
	require.NoError(t, err)
	env.carol, err = st.CreateStudent(ctx, "Carol Diaz", "carol@uni.test")
	require.NoError(t, err)
	env.mentor, err = st.CreateFaculty(ctx, "Grace", "Hopper", "hopper@uni.test")
	require.NoError(t, err)
	env.groupA, err = st.CreateGroup(ctx, "Compilers", &env.mentor)
	require.NoError(t, err)
	env.groupB, err = st.CreateGroup(ctx, "Databases", nil)
	require.NoError(t, err)
	require.NoError(t, st.AddGroupMember(ctx, env.groupA, env.alice))
	require.NoError(t, st.AddGroupMember(ctx, env.groupA, env.bob))
	require.NoError(t, st.AddGroupMember(ctx, env.groupB, env.carol))

	cfg := config.Default()
	cfg.Addr = ":0"
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	svc := chat.New(st, chat.Options{})
	hub, err := core.NewHub(svc, core.DefaultOptions(), &logger)
	require.NoError(t, err)

	hubCtx, cancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	env.hub = hub
	env.cancel = cancel
	env.server = httptest.NewServer(NewServer(hub, svc, &cfg, &logger).Handler)

	t.Cleanup(func() {
		env.server.Close()
		cancel()
		<-hub.Stopped()
		st.Close()
	})
	return env
}

func (e *testEnv) wsURL(userID int64, role core.Role, name string, groupID int64) string {
	q := url.Values{}
	q.Set("userId", fmt.Sprint(userID))
	q.Set("userType", string(role))
	q.Set("userName", name)
	q.Set("groupId", fmt.Sprint(groupID))
	return strings.Replace(e.server.URL, "http", "ws", 1) + "/ws?" + q.Encode()
}

func (e *testEnv) dial(t *testing.T, userID int64, role core.Role, name string, groupID int64) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, e.wsURL(userID, role, name, groupID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// frame is an outbound message with its payload left raw.
type frame struct {
	Type  string          `json:"type"`
	Ref   string          `json:"ref"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, conn *websocket.Conn, typ, ref string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Ref: ref, Data: payload}))
}

// readUntil returns the first frame matching match, skipping the rest.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		var f frame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		if match(f) {
			return f
		}
	}
}

func isEvent(name string) func(frame) bool {
	return func(f frame) bool { return f.Type == proto.OutboundTypeEvent && f.Event == name }
}

func isReply(ref string) func(frame) bool {
	return func(f frame) bool { return f.Ref == ref }
}

func decodeData[T any](t *testing.T, f frame) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}
