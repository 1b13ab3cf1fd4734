package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/http/response"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/platform/apierr"
	"github.com/yungbote/babycare-backend/internal/triage"
)

type TriageHandler struct {
	controller triage.Controller
	metrics    *observability.Metrics
}

func NewTriageHandler(controller triage.Controller, metrics *observability.Metrics) *TriageHandler {
	return &TriageHandler{controller: controller, metrics: metrics}
}

// POST /symptom-intake
func (h *TriageHandler) Start(c *gin.Context) {
	var req triage.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	out, err := h.controller.Start(c.Request.Context(), req)
	h.respond(c, "start", out, err)
}

// POST /symptom-intake/update
func (h *TriageHandler) Update(c *gin.Context) {
	var req triage.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	out, err := h.controller.Update(c.Request.Context(), req)
	h.respond(c, "update", out, err)
}

func (h *TriageHandler) respond(c *gin.Context, op string, out triage.Outcome, err error) {
	if err != nil {
		if errors.Is(err, triage.ErrEmptyMessage) {
			err = apierr.BadRequest(err)
		}
		h.metrics.IncTriageOutcome(op, "error")
		response.RespondAPIError(c, err)
		return
	}
	h.metrics.IncTriageOutcome(op, out.Kind.String())
	response.RespondOK(c, out)
}
