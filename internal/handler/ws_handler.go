package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/openexam/session-engine/internal/middleware"
	"github.com/openexam/session-engine/internal/service"
	"github.com/openexam/session-engine/internal/session"
	ws "github.com/openexam/session-engine/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams countdown events to the exam-taking client.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// TimerStream godoc
// WS /ws/v1/candidate/exams/:exam_id/timer
// Upgrades to WebSocket and pushes tick/finished countdown events. The
// client sends {"action":"sync"} to force an immediate resync after its
// tab regains visibility.
func (h *WSHandler) TimerStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	sess, err := h.sessionService.Get(examID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	// All writes go through the out channel so the connection has a
	// single writer. The observer runs on the timer goroutine: it must
	// not block, so a full buffer drops the tick (the next one
	// supersedes it).
	out := make(chan interface{}, 16)
	done := make(chan struct{})
	defer close(done)

	remove := sess.AddTimerObserver(func(ev session.TimerEvent) {
		event := ws.EventTick
		if ev.Type == session.TimerFinished {
			event = ws.EventFinished
		}
		payload := ws.TimerResponse{
			Event:    event,
			TimeLeft: ev.TimeLeft,
			Running:  ev.Type != session.TimerFinished,
		}
		select {
		case out <- payload:
		default:
		}
	})
	defer remove()

	go func() {
		for {
			select {
			case <-done:
				return
			case payload := <-out:
				if err := ws.WriteTyped(conn, payload); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	// Initial push so the client renders the countdown immediately.
	sess.Timer().QueryNow()

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSync:
			sess.Timer().QueryNow()
		case ws.ActionPing:
			select {
			case out <- ws.PongResponse{Event: ws.EventPong}:
			default:
			}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			select {
			case out <- ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}:
			default:
			}
		}
	}
}
