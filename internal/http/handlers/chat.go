package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	chatrepo "github.com/yungbote/babycare-backend/internal/data/repos/chat"
	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/http/response"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/apierr"
	"github.com/yungbote/babycare-backend/internal/platform/ctxutil"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const historyLimit = 5

type ChatHandler struct {
	log      *logger.Logger
	history  chatrepo.HistoryRepo
	timeline chatrepo.TimelineRepo
	now      func() time.Time
}

func NewChatHandler(log *logger.Logger, history chatrepo.HistoryRepo, timeline chatrepo.TimelineRepo) *ChatHandler {
	return &ChatHandler{
		log:      log.With("handler", "ChatHandler"),
		history:  history,
		timeline: timeline,
		now:      time.Now,
	}
}

type saveChatRequest struct {
	Question      string          `json:"question"`
	Intent        string          `json:"intent"`
	ParsedSymptom json.RawMessage `json:"parsed_symptom"`
	Response      string          `json:"response"`
	Timestamp     string          `json:"timestamp"`
}

type historyItem struct {
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// POST /save-chat
func (h *ChatHandler) SaveChat(c *gin.Context) {
	id := ctxutil.GetIdentity(c.Request.Context())
	if id == nil {
		response.RespondAPIError(c, apierr.Unauthorized(errors.New("missing identity")))
		return
	}
	var req saveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	ts := h.now()
	if raw := strings.TrimSpace(req.Timestamp); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.RespondAPIError(c, apierr.BadRequest(err))
			return
		}
		ts = parsed
	}
	parsed := datatypes.JSON([]byte("{}"))
	if p := strings.TrimSpace(string(req.ParsedSymptom)); p != "" && p != "null" {
		parsed = datatypes.JSON(req.ParsedSymptom)
	}

	row := &types.ChatHistoryDetailed{
		UID:           id.UID,
		Question:      req.Question,
		Intent:        req.Intent,
		ParsedSymptom: parsed,
		Response:      req.Response,
		Timestamp:     ts,
	}
	if err := h.history.Create(dbctx.New(c.Request.Context()), row); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "success"})
}

// GET /history
func (h *ChatHandler) History(c *gin.Context) {
	id := ctxutil.GetIdentity(c.Request.Context())
	if id == nil {
		response.RespondAPIError(c, apierr.Unauthorized(errors.New("missing identity")))
		return
	}
	rows, err := h.history.Recent(dbctx.New(c.Request.Context()), id.UID, historyLimit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := make([]historyItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, historyItem{Question: r.Question, Response: r.Response, Timestamp: r.Timestamp})
	}
	response.RespondOK(c, gin.H{"history": out})
}

// GET /child-timeline
func (h *ChatHandler) Timeline(c *gin.Context) {
	id := ctxutil.GetIdentity(c.Request.Context())
	if id == nil {
		response.RespondAPIError(c, apierr.Unauthorized(errors.New("missing identity")))
		return
	}
	rows, err := h.timeline.ListByUID(dbctx.New(c.Request.Context()), id.UID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if rows == nil {
		rows = []*types.ChildSymptomTimeline{}
	}
	response.RespondOK(c, rows)
}
