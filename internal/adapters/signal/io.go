package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/livestage/internal/app"
	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// seat is what a connection is admitted as.
type seat struct {
	engine *app.Engine
	pid    domain.ParticipantID
	ct     string
}

func (g *Gateway) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(g.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			g.writeClose(c, websocket.CloseGoingAway)
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(g.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "adapters.signal").Msg("writePump ping")
				return
			}
		case f, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(g.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.signal").Msg("writePump set deadline")
				return
			}
			var err error
			switch f.Kind {
			case core.CloseFrame:
				g.writeClose(c, websocket.CloseNormalClosure)
				return
			case core.BinaryFrame:
				err = c.conn.WriteMessage(websocket.BinaryMessage, f.Data)
			default:
				err = c.conn.WriteMessage(websocket.TextMessage, f.Data)
			}
			if err != nil {
				log.Warn().Err(err).Str("module", "adapters.signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (g *Gateway) writeClose(c *WsSignalConn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(g.opts.WriteWait))
}

// readPump feeds inbound frames to the engine until the socket fails or the
// connection is told to stop. On exit the connection leaves every group and
// the engine learns about the disconnect.
func (g *Gateway) readPump(ctx context.Context, s seat, c *WsSignalConn) {
	logger := log.With().
		Str("module", "adapters.signal").
		Str("session", string(s.engine.ID())).
		Str("participant", string(s.pid)).
		Str("ct", s.ct).
		Logger()
	stopped := false
	defer func() {
		g.bus.UnsubscribeAll(c)
		s.engine.Disconnect(context.WithoutCancel(ctx), s.pid, c)
		if !stopped {
			c.Close()
		}
		logger.Info().Bool("stopped", stopped).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(g.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		l := logger
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("readPump read error")
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			err = s.engine.RelayChunk(ctx, s.pid, data)
		case websocket.TextMessage:
			ctl, decErr := decodeControl(data)
			if decErr != nil {
				logger.Warn().Err(decErr).Msg("ignoring message")
				continue
			}
			err = s.engine.Handle(ctx, s.pid, ctl)
			if err != nil {
				l = logger.With().Str("control", core.ControlType(ctl)).Logger()
			}
		default:
			continue
		}
		if !g.report(l, c, err) {
			stopped = true
			return
		}
	}
}

// report tells the client about err. It returns false when the connection
// must stop.
func (g *Gateway) report(logger zerolog.Logger, c *WsSignalConn, err error) bool {
	if err == nil {
		return true
	}
	var ae *domain.ActionError
	switch {
	case errors.As(err, &ae):
		logger.Info().Err(err).Bool("fatal", ae.Fatal).Msg("action refused")
		if ae.Fatal {
			g.reject(c, ae.Message, ae.Details)
			return false
		}
		g.sendError(c, ae.Message, ae.Details)
		return true
	case errors.Is(err, domain.ErrBusUnavailable):
		logger.Error().Err(err).Msg("bus unavailable")
		g.reject(c, "internal_error", "The session is temporarily unavailable.")
		return false
	default:
		logger.Warn().Err(err).Msg("ignoring message")
		return true
	}
}

func (g *Gateway) sendJSON(c *WsSignalConn, v any) {
	f, err := core.JSONFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(f)
}

func (g *Gateway) sendError(c *WsSignalConn, message, details string) {
	g.sendJSON(c, core.ErrorEvent{Type: core.EventError, Message: message, Details: details})
}

// reject tells the client why it was refused. The write pump closes the
// socket once the message is out; a full buffer closes it right away.
func (g *Gateway) reject(c *WsSignalConn, message, details string) {
	g.sendError(c, message, details)
	if err := c.TrySend(core.Closing()); err != nil {
		c.Close()
	}
}
