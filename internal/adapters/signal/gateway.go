package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/livestage/internal/app"
	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// JoinPath is the route prefix participants use to join a session.
const JoinPath = "/ws/stream/live/join/event/"

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
	// PublicURL is the externally visible base, e.g. wss://live.example.com.
	// Empty means derive it from the request.
	PublicURL string
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	o.PublicURL = strings.TrimRight(o.PublicURL, "/")
	return o
}

// Gateway admits websocket connections to sessions.
type Gateway struct {
	reg      *app.Registry
	auth     core.Authenticator
	store    core.Store
	bus      core.GroupBus
	opts     Options
	upgrader websocket.Upgrader
}

func NewGateway(reg *app.Registry, auth core.Authenticator, store core.Store, bus core.GroupBus, opts Options) *Gateway {
	return &Gateway{
		reg:   reg,
		auth:  auth,
		store: store,
		bus:   bus,
		opts:  opts.withDefaults(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (g *Gateway) upgrade(c *gin.Context) (*WsSignalConn, bool) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Msg("ws upgrade")
		return nil, false
	}
	return newWsSignalConn(ws, g.opts.SendBuffer), true
}

// HandleStart authenticates a host and starts a new session for it.
func (g *Gateway) HandleStart(ctx context.Context, c *gin.Context) {
	userID := c.Param("user_id")
	ct := c.GetString("client_token")

	conn, ok := g.upgrade(c)
	if !ok {
		return
	}
	go g.writePump(ctx, conn)

	id, err := g.auth.Authenticate(c.Request.Context(), bearerToken(c))
	if err != nil {
		msg, details := authFailure(err)
		log.Info().Str("module", "adapters.signal").Str("ct", ct).Err(err).Msg("host rejected")
		g.reject(conn, msg, details)
		return
	}
	if err := matchIdentity(userID, id); err != nil {
		log.Info().Str("module", "adapters.signal").Str("ct", ct).Err(err).Msg("host rejected")
		g.reject(conn, "Unauthorized User.", "Your request Id does not match with our verified user id.")
		return
	}

	e, err := g.reg.Start(ctx, id, conn)
	if err != nil {
		log.Error().Str("module", "adapters.signal").Err(err).Msg("start session")
		g.reject(conn, "internal_error", "Could not start the stream.")
		return
	}
	g.sendJSON(conn, core.StreamLinkEvent{
		Type:    core.EventStreamLink,
		EventID: e.ID(),
		JoinURL: g.joinURL(c.Request, e.ID()),
	})

	go g.readPump(ctx, seat{engine: e, pid: id.AccountID, ct: ct}, conn)
}

type joinURI struct {
	EventID       string `uri:"event_id" binding:"required,max=64"`
	Username      string `uri:"username" binding:"required"`
	ParticipantID string `uri:"participant_id" binding:"required"`
}

// HandleJoin admits a participant into an existing session.
func (g *Gateway) HandleJoin(ctx context.Context, c *gin.Context) {
	ct := c.GetString("client_token")
	var uri joinURI
	bindErr := c.ShouldBindUri(&uri)

	conn, ok := g.upgrade(c)
	if !ok {
		return
	}
	go g.writePump(ctx, conn)

	if bindErr != nil {
		g.reject(conn, "invalid_request", bindErr.Error())
		return
	}

	e, err := g.reg.Resolve(c.Request.Context(), domain.SessionID(uri.EventID))
	switch {
	case errors.Is(err, domain.ErrSessionEnded):
		g.reject(conn, "event_ended", "This event is no longer active.")
		return
	case err != nil:
		g.reject(conn, "event_not_found", "This event does not exist.")
		return
	}

	p, err := domain.NewParticipant(domain.ParticipantID(uri.ParticipantID), uri.Username)
	if err != nil {
		g.reject(conn, "invalid_participant", err.Error())
		return
	}

	err = e.Join(ctx, p, conn)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateParticipant):
		g.reject(conn, "duplicate_user",
			fmt.Sprintf("User ID %s or Username %s is already in the session.", p.ID, p.Username))
		return
	case errors.Is(err, domain.ErrSessionEnded):
		g.reject(conn, "event_ended", "This event is no longer active.")
		return
	default:
		log.Error().Str("module", "adapters.signal").Err(err).Str("session", string(e.ID())).Msg("join failed")
		g.bus.UnsubscribeAll(conn)
		e.Disconnect(ctx, p.ID, conn)
		g.reject(conn, "internal_error", "The session is temporarily unavailable.")
		return
	}

	go g.readPump(ctx, seat{engine: e, pid: p.ID, ct: ct}, conn)
}

// HandleActive answers with the list of active sessions and closes.
func (g *Gateway) HandleActive(ctx context.Context, c *gin.Context) {
	conn, ok := g.upgrade(c)
	if !ok {
		return
	}
	go g.writePump(ctx, conn)

	streams, err := g.store.ListActive(c.Request.Context())
	if err != nil {
		log.Error().Str("module", "adapters.signal").Err(err).Msg("list active")
		g.reject(conn, "internal_error", "Could not list active streams.")
		return
	}
	if streams == nil {
		streams = []domain.SessionRecord{}
	}
	g.sendJSON(conn, core.ActiveStreamsEvent{Type: core.EventActiveStreams, Streams: streams})
	_ = conn.TrySend(core.Closing())
}

func (g *Gateway) joinURL(r *http.Request, id domain.SessionID) string {
	base := g.opts.PublicURL
	if base == "" {
		scheme := "ws"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			scheme = "wss"
		}
		base = scheme + "://" + r.Host
	}
	return base + JoinPath + string(id) + "/"
}

// matchIdentity checks that the user id in the start path is the one the
// token was issued for.
func matchIdentity(pathUser string, id core.Identity) error {
	if string(id.AccountID) != pathUser {
		return fmt.Errorf("%w: path user %q, token user %q", domain.ErrIdentityMismatch, pathUser, id.AccountID)
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

func authFailure(err error) (message, details string) {
	switch {
	case errors.Is(err, domain.ErrTokenMissing):
		return "JWT token is missing. Authentication required.", "Only authenticated users can access the platform."
	case errors.Is(err, domain.ErrTokenExpired):
		return "Expired Token", "Token has expired."
	default:
		return "Invalid token", "Invalid token."
	}
}
