package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/livestage/internal/adapters/store"
	"github.com/dkeye/livestage/internal/domain"
	"github.com/dkeye/livestage/internal/mocks"
)

type fixedCount int

func (f fixedCount) Len() int { return int(f) }

func newRouter(h *StreamHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStreamHandlers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	now := time.Now().UTC()
	require.NoError(t, st.CreateSession(ctx, domain.SessionRecord{
		ID: "live", HostID: "h1", Status: domain.StatusActive, Mode: domain.ModeAudio, CreatedAt: now, StartedAt: now,
	}))
	require.NoError(t, st.CreateSession(ctx, domain.SessionRecord{
		ID: "done", HostID: "h2", Status: domain.StatusActive, CreatedAt: now, StartedAt: now,
	}))
	require.NoError(t, st.EndSession(ctx, "done", now))
	require.NoError(t, st.AppendChat(ctx, "live", domain.ChatEntry{Kind: domain.ChatMessage, SenderID: "p1", SenderName: "Alice", Text: "hi", Timestamp: now}))
	require.NoError(t, st.AddParticipant(ctx, "live", domain.Participant{ID: "p1", Username: "Alice", JoinedAt: now}))

	r := newRouter(&StreamHandlers{Store: st, Live: fixedCount(1)})

	t.Run("active lists only live streams", func(t *testing.T) {
		req := require.New(t)
		rec := get(t, r, "/api/streams/active")
		req.Equal(http.StatusOK, rec.Code)

		var body ActiveResponse
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		req.Len(body.Streams, 1)
		req.Equal(domain.SessionID("live"), body.Streams[0].ID)
	})

	t.Run("single stream", func(t *testing.T) {
		req := require.New(t)
		rec := get(t, r, "/api/streams/done")
		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), `"status":"ended"`)
	})

	t.Run("unknown stream", func(t *testing.T) {
		rec := get(t, r, "/api/streams/missing")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("chat transcript", func(t *testing.T) {
		req := require.New(t)
		rec := get(t, r, "/api/streams/live/chat")
		req.Equal(http.StatusOK, rec.Code)

		var body ChatResponse
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		req.Len(body.Messages, 1)
		req.Equal("hi", body.Messages[0].Text)
	})

	t.Run("participants", func(t *testing.T) {
		req := require.New(t)
		rec := get(t, r, "/api/streams/live/participants")
		req.Equal(http.StatusOK, rec.Code)

		var body ParticipantsResponse
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		req.Equal(domain.SessionID("live"), body.RoomID)
		req.Len(body.Participants, 1)
		req.Equal("Alice", body.Participants[0].Username)
		req.True(body.Participants[0].JoinedAt.Equal(now))

		rec = get(t, r, "/api/streams/done/participants")
		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), `"participants":[]`)

		rec = get(t, r, "/api/streams/missing/participants")
		req.Equal(http.StatusNotFound, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		req := require.New(t)
		rec := get(t, r, "/healthz")
		req.Equal(http.StatusOK, rec.Code)
		req.JSONEq(`{"status":"ok","sessions":1}`, rec.Body.String())
	})
}

func TestStreamHandlers_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	st.EXPECT().ListActive(gomock.Any()).Return(nil, errors.New("db down"))

	rec := get(t, newRouter(&StreamHandlers{Store: st, Live: fixedCount(0)}), "/api/streams/active")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
