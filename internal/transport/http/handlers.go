// Package http serves the read-only REST view of sessions.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ActiveResponse struct {
	Streams []domain.SessionRecord `json:"streams"`
}

type ChatResponse struct {
	RoomID   domain.SessionID   `json:"room_id"`
	Messages []domain.ChatEntry `json:"messages"`
}

type ParticipantView struct {
	UserID   domain.ParticipantID `json:"user_id"`
	Username string               `json:"username"`
	JoinedAt time.Time            `json:"joined_at"`
}

type ParticipantsResponse struct {
	RoomID       domain.SessionID  `json:"room_id"`
	Participants []ParticipantView `json:"participants"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// LiveCounter reports how many sessions this process serves.
type LiveCounter interface {
	Len() int
}

type StreamHandlers struct {
	Store core.Store
	Live  LiveCounter
}

type streamURI struct {
	ID string `uri:"id" binding:"required,max=64"`
}

func (h *StreamHandlers) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)
	api := r.Group("/api/streams")
	api.GET("/active", h.active)
	api.GET("/:id", h.get)
	api.GET("/:id/chat", h.chat)
	api.GET("/:id/participants", h.participants)
}

func (h *StreamHandlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Sessions: h.Live.Len()})
}

func (h *StreamHandlers) active(c *gin.Context) {
	streams, err := h.Store.ListActive(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if streams == nil {
		streams = []domain.SessionRecord{}
	}
	c.JSON(http.StatusOK, ActiveResponse{Streams: streams})
}

func (h *StreamHandlers) get(c *gin.Context) {
	var uri streamURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid stream id"})
		return
	}
	rec, err := h.Store.GetSession(c.Request.Context(), domain.SessionID(uri.ID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *StreamHandlers) chat(c *gin.Context) {
	var uri streamURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid stream id"})
		return
	}
	id := domain.SessionID(uri.ID)
	entries, err := h.Store.ChatHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []domain.ChatEntry{}
	}
	c.JSON(http.StatusOK, ChatResponse{RoomID: id, Messages: entries})
}

func (h *StreamHandlers) participants(c *gin.Context) {
	var uri streamURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid stream id"})
		return
	}
	id := domain.SessionID(uri.ID)
	ps, err := h.Store.Participants(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	views := lo.Map(ps, func(p domain.Participant, _ int) ParticipantView {
		return ParticipantView{UserID: p.ID, Username: p.Username, JoinedAt: p.JoinedAt}
	})
	c.JSON(http.StatusOK, ParticipantsResponse{RoomID: id, Participants: views})
}

func (h *StreamHandlers) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "stream not found"})
		return
	}
	log.Error().Str("module", "transport.http").Err(err).Str("path", c.FullPath()).Msg("store query failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
