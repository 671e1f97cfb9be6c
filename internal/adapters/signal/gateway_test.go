package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/livestage/internal/adapters/auth"
	"github.com/dkeye/livestage/internal/adapters/bus"
	"github.com/dkeye/livestage/internal/adapters/store"
	"github.com/dkeye/livestage/internal/app"
	"github.com/dkeye/livestage/internal/app/media"
	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

type testServer struct {
	srv   *httptest.Server
	jwt   *auth.JWT
	store *store.Memory
	reg   *app.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := auth.NewJWT("test-secret")
	require.NoError(t, err)
	st := store.NewMemory()
	b := bus.NewMemory(app.SimplePolicy{})
	reg := app.NewRegistry(app.Deps{Bus: b, Store: st})
	gw := NewGateway(reg, a, st, b, Options{WriteWait: time.Second})

	r := gin.New()
	r.GET("/ws/stream/start/live/:user_id/", func(c *gin.Context) { gw.HandleStart(ctx, c) })
	r.GET(JoinPath+":event_id/:username/:participant_id/", func(c *gin.Context) { gw.HandleJoin(ctx, c) })
	r.GET("/ws/active-streams/", func(c *gin.Context) { gw.HandleActive(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, jwt: a, store: st, reg: reg}
}

func (s *testServer) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + path
}

func (s *testServer) dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *testServer) startHost(t *testing.T, userID, username string) (*websocket.Conn, string) {
	t.Helper()
	token, err := s.jwt.Issue(domain.ParticipantID(userID), username, time.Hour)
	require.NoError(t, err)
	conn := s.dial(t, s.wsURL("/ws/stream/start/live/"+userID+"/?token="+token))
	link := readUntil(t, conn, core.EventStreamLink)
	joinURL, _ := link["join_url"].(string)
	require.NotEmpty(t, joinURL)
	return conn, joinURL
}

// readUntil reads text frames until one of the wanted type shows up.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		if kind != websocket.TextMessage {
			continue
		}
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

// readBinary skips text frames until a binary one arrives.
func readBinary(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind == websocket.BinaryMessage {
			return data
		}
	}
}

// expectClosed drains the connection until the server closes it.
func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			return
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestGateway_SessionLifecycle(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	host, joinURL := s.startHost(t, "42", "Bob")
	req.True(strings.HasPrefix(joinURL, s.wsURL(JoinPath)))
	req.Equal(1, s.reg.Len())

	alice := s.dial(t, joinURL+"Alice/p1/")
	history := readUntil(t, alice, core.EventChatHistory)
	req.Empty(history["messages"])
	list := readUntil(t, alice, core.EventParticipants)
	req.Len(list["participants"], 1)
	count := readUntil(t, alice, core.EventCount)
	req.EqualValues(1, count["count"])
	joined := readUntil(t, host, core.EventParticipantIn)
	req.Equal("Alice", joined["username"])

	dup := s.dial(t, joinURL+"Alice2/p1/")
	rejected := readUntil(t, dup, core.EventError)
	req.Equal("duplicate_user", rejected["message"])
	expectClosed(t, dup)

	send(t, alice, map[string]any{"type": "text", "message": "  hello  "})
	chat := readUntil(t, host, core.EventChatMessage)
	req.Equal("hello", chat["message"])

	send(t, host, map[string]any{"type": "invite_cohost", "user_id": "p1"})
	readUntil(t, alice, core.EventCoHostInvite)
	send(t, alice, map[string]any{"type": "accept_cohost"})
	cohost := readUntil(t, host, core.EventCoHostJoined)
	req.Equal("Alice is now a co-host.", cohost["message"])

	pcm := media.EncodePCM16([]float32{0.25, -0.25, 0.5})
	req.NoError(host.WriteMessage(websocket.BinaryMessage, pcm))
	chunk := readBinary(t, alice)
	req.Equal(byte(media.AudioChunk), chunk[0])
	req.Len(chunk, 1+len(pcm))

	send(t, host, map[string]any{"type": "stream_ended"})
	readUntil(t, alice, core.EventStreamEnded)
	expectClosed(t, alice)

	req.Eventually(func() bool { return s.reg.Len() == 0 }, 3*time.Second, 10*time.Millisecond)

	late := s.dial(t, joinURL+"Carol/p2/")
	ended := readUntil(t, late, core.EventError)
	req.Equal("event_ended", ended["message"])
}

func TestGateway_StartRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		conn := s.dial(t, s.wsURL("/ws/stream/start/live/42/"))
		msg := readUntil(t, conn, core.EventError)
		require.Equal(t, "JWT token is missing. Authentication required.", msg["message"])
		expectClosed(t, conn)
	})

	t.Run("garbage token", func(t *testing.T) {
		conn := s.dial(t, s.wsURL("/ws/stream/start/live/42/?token=nope"))
		msg := readUntil(t, conn, core.EventError)
		require.Equal(t, "Invalid token", msg["message"])
		expectClosed(t, conn)
	})

	t.Run("identity mismatch", func(t *testing.T) {
		token, err := s.jwt.Issue("43", "Eve", time.Hour)
		require.NoError(t, err)
		conn := s.dial(t, s.wsURL("/ws/stream/start/live/42/?token="+token))
		msg := readUntil(t, conn, core.EventError)
		require.Equal(t, "Unauthorized User.", msg["message"])
		require.Equal(t, "Your request Id does not match with our verified user id.", msg["details"])
		expectClosed(t, conn)
	})

	require.Zero(t, s.reg.Len())
}

func TestGateway_JoinUnknownEvent(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, s.wsURL(JoinPath+"missing/Alice/p1/"))
	msg := readUntil(t, conn, core.EventError)
	require.Equal(t, "event_not_found", msg["message"])
	expectClosed(t, conn)
}

func TestGateway_NonHostEndIsFatal(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	host, joinURL := s.startHost(t, "42", "Bob")

	alice := s.dial(t, joinURL+"Alice/p1/")
	readUntil(t, alice, core.EventCount)

	send(t, alice, map[string]any{"type": "stream_ended"})
	msg := readUntil(t, alice, core.EventError)
	req.Equal("Unauthorized User", msg["message"])
	expectClosed(t, alice)

	left := readUntil(t, host, core.EventParticipantOut)
	req.Equal("Alice", left["username"])
	req.Equal(1, s.reg.Len())
}

func TestGateway_ActiveStreams(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	empty := s.dial(t, s.wsURL("/ws/active-streams/"))
	msg := readUntil(t, empty, core.EventActiveStreams)
	req.Empty(msg["streams"])
	expectClosed(t, empty)

	_, _ = s.startHost(t, "42", "Bob")
	req.Eventually(func() bool {
		active, err := s.store.ListActive(context.Background())
		return err == nil && len(active) == 1
	}, 3*time.Second, 10*time.Millisecond)
	conn := s.dial(t, s.wsURL("/ws/active-streams/"))
	msg = readUntil(t, conn, core.EventActiveStreams)
	req.Len(msg["streams"], 1)
	expectClosed(t, conn)
}

func TestGateway_JoinURLHonoursForwardedProto(t *testing.T) {
	g := NewGateway(nil, nil, nil, nil, Options{})
	r := httptest.NewRequest(http.MethodGet, "/ws/stream/start/live/1/", nil)
	r.Host = "live.example.com"
	r.Header.Set("X-Forwarded-Proto", "https")
	require.Equal(t, "wss://live.example.com"+JoinPath+"abc/", g.joinURL(r, "abc"))

	g = NewGateway(nil, nil, nil, nil, Options{PublicURL: "wss://cdn.example.com/"})
	require.Equal(t, "wss://cdn.example.com"+JoinPath+"abc/", g.joinURL(r, "abc"))
}

func TestMatchIdentity(t *testing.T) {
	req := require.New(t)
	req.NoError(matchIdentity("42", core.Identity{AccountID: "42"}))

	err := matchIdentity("42", core.Identity{AccountID: "43"})
	req.ErrorIs(err, domain.ErrIdentityMismatch)
	req.Contains(err.Error(), `"43"`)
}
