package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/livestage/internal/adapters/signal"
	"github.com/dkeye/livestage/internal/config"
	transport "github.com/dkeye/livestage/internal/transport/http"
)

const clientTokenKey = "client_token"

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the
// signed session cookie. It only correlates log lines.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Str("module", "adapters.http").Err(err).Msg("save client token")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, gw *signal.Gateway, api *transport.StreamHandlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("LiveStageSessions", store))
	r.Use(ClientTokenMiddleware())

	api.Register(r)

	ws := r.Group("/ws")
	ws.GET("/stream/start/live/:user_id/", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString(clientTokenKey)).Msg("host start endpoint hit")
		gw.HandleStart(ctx, c)
	})
	ws.GET("/stream/live/join/event/:event_id/:username/:participant_id/", func(c *gin.Context) {
		gw.HandleJoin(ctx, c)
	})
	ws.GET("/active-streams/", func(c *gin.Context) {
		gw.HandleActive(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
