package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/babycare-backend/internal/http/handlers"
	httpMW "github.com/yungbote/babycare-backend/internal/http/middleware"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	Metrics         *observability.Metrics
	CORSOrigins     []string
	MaxRequestBytes int64

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	TriageHandler       *httpH.TriageHandler
	PsychologistHandler *httpH.PsychologistHandler
	IntentHandler       *httpH.IntentHandler
	ChatHandler         *httpH.ChatHandler
	JobHandler          *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))

	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// The socket authenticates after the upgrade.
	if cfg.PsychologistHandler != nil {
		r.GET("/ws/child-psychologist", cfg.PsychologistHandler.Serve)
	}

	// Jobs use their own shared token.
	if cfg.JobHandler != nil {
		r.POST("/internal/jobs/:name", cfg.JobHandler.Trigger)
	}

	protected := r.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.TriageHandler != nil {
			protected.POST("/symptom-intake", cfg.TriageHandler.Start)
			protected.POST("/symptom-intake/update", cfg.TriageHandler.Update)
			protected.POST("/pediatrician", cfg.TriageHandler.Start)
			protected.POST("/pediatrician/update", cfg.TriageHandler.Update)
		}

		if cfg.IntentHandler != nil {
			protected.POST("/intent", cfg.IntentHandler.Classify)
		}

		if cfg.ChatHandler != nil {
			protected.POST("/save-chat", cfg.ChatHandler.SaveChat)
			protected.GET("/history", cfg.ChatHandler.History)
			protected.GET("/child-timeline", cfg.ChatHandler.Timeline)
		}
	}

	return r
}
