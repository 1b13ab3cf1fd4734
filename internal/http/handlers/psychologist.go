package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/babycare-backend/internal/auth"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
	"github.com/yungbote/babycare-backend/internal/psychologist"
)

const (
	CloseUnauthorized = 4401

	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketMaxMessage = 64 << 10
)

type PsychologistHandler struct {
	log      *logger.Logger
	agent    psychologist.Agent
	verifier auth.Verifier
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	pongWait time.Duration
}

func NewPsychologistHandler(log *logger.Logger, agent psychologist.Agent, verifier auth.Verifier, metrics *observability.Metrics) *PsychologistHandler {
	return &PsychologistHandler{
		log:      log.With("handler", "PsychologistHandler"),
		agent:    agent,
		verifier: verifier,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pongWait: socketPongWait,
	}
}

// WithPongWait sets how long an idle socket may go without a pong. Pings go
// out at 9/10 of it.
func (h *PsychologistHandler) WithPongWait(d time.Duration) *PsychologistHandler {
	if d > 0 {
		h.pongWait = d
	}
	return h
}

type socketRequest struct {
	Message string `json:"message"`
}

// GET /ws/child-psychologist?token=...
func (h *PsychologistHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Socket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, err := h.verifier.Verify(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.log.Info("Socket rejected", "error", err)
		msg := websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(socketWriteWait))
		return
	}

	h.metrics.SocketOpened()
	defer h.metrics.SocketClosed()
	log := h.log.With("uid", id.UID)
	log.Info("Socket open")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.ping(ctx, conn)

	h.serve(ctx, log, conn, psychologist.NewSession(log, h.agent))
	log.Info("Socket closed")
}

func (h *PsychologistHandler) serve(ctx context.Context, log *logger.Logger, conn *websocket.Conn, session *psychologist.Session) {
	conn.SetReadLimit(socketMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn("Socket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))

		var req socketRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if !h.write(conn, psychologist.Reply{Status: psychologist.StatusError, Message: "invalid message", History: session.History()}) {
				return
			}
			continue
		}
		if strings.TrimSpace(req.Message) == "" {
			continue
		}

		// Pongs are not read while a turn runs, so the deadline is lifted
		// until it finishes.
		_ = conn.SetReadDeadline(time.Time{})
		reply, err := session.Handle(ctx, req.Message)
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		if err != nil && errors.Is(err, psychologist.ErrEmptyMessage) {
			continue
		}
		if !h.write(conn, reply) {
			return
		}
	}
}

func (h *PsychologistHandler) write(conn *websocket.Conn, reply psychologist.Reply) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	if err := conn.WriteJSON(reply); err != nil {
		h.log.Warn("Socket write failed", "error", err)
		return false
	}
	return true
}

// WriteControl may run alongside the reader's writes.
func (h *PsychologistHandler) ping(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(h.pongWait * 9 / 10)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}
