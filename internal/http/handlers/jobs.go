package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/http/response"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/jobs/bus"
	"github.com/yungbote/babycare-backend/internal/platform/apierr"
	"github.com/yungbote/babycare-backend/internal/platform/ctxutil"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const HeaderJobsToken = "X-Jobs-Token"

type JobHandler struct {
	log   *logger.Logger
	bus   bus.Bus
	known func(name string) bool
	token string
}

func NewJobHandler(log *logger.Logger, b bus.Bus, runner *jobs.Runner, token string) *JobHandler {
	return &JobHandler{
		log:   log.With("handler", "JobHandler"),
		bus:   b,
		known: runner.Known,
		token: token,
	}
}

// POST /internal/jobs/:name
func (h *JobHandler) Trigger(c *gin.Context) {
	if !h.authorized(c.GetHeader(HeaderJobsToken)) {
		response.RespondAPIError(c, apierr.Unauthorized(errors.New("invalid jobs token")))
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if !h.known(name) {
		response.RespondAPIError(c, apierr.New(http.StatusNotFound, "job_not_found", jobs.ErrUnknownJob))
		return
	}

	t := bus.Trigger{Job: name, Source: "http", RequestedAt: time.Now().UTC()}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		t.RequestID = td.RequestID
	}
	if err := h.bus.Publish(c.Request.Context(), t); err != nil {
		h.log.Error("Publish job trigger failed", "job", name, "error", err)
		response.RespondAPIError(c, apierr.Retryable(http.StatusServiceUnavailable, "bus_unavailable", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job": name})
}

// An empty configured token disables the endpoint.
func (h *JobHandler) authorized(got string) bool {
	if h.token == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}
