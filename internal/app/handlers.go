package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/config"
	httpx "github.com/yungbote/babycare-backend/internal/http"
	httpH "github.com/yungbote/babycare-backend/internal/http/handlers"
	httpMW "github.com/yungbote/babycare-backend/internal/http/middleware"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Triage       *httpH.TriageHandler
	Psychologist *httpH.PsychologistHandler
	Intent       *httpH.IntentHandler
	Chat         *httpH.ChatHandler
	Job          *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, cfg *config.Config, clients Clients, repos Repos, services Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(),
		Triage:       httpH.NewTriageHandler(services.Triage, metrics),
		Psychologist: httpH.NewPsychologistHandler(log, services.Psychologist, clients.Verifier, metrics),
		Intent:       httpH.NewIntentHandler(services.Intent),
		Chat:         httpH.NewChatHandler(log, repos.History, repos.Timeline),
		Job:          httpH.NewJobHandler(log, clients.JobBus, services.JobRunner, cfg.Jobs.TriggerToken),
	}
}

func wireMiddleware(log *logger.Logger, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, clients.Verifier),
	}
}

func routerConfig(log *logger.Logger, cfg *config.Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) httpx.RouterConfig {
	return httpx.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		CORSOrigins:         cfg.HTTP.CORSAllowOrigins,
		MaxRequestBytes:     cfg.HTTP.MaxRequestBytes,
		AuthMiddleware:      middleware.Auth,
		HealthHandler:       handlers.Health,
		TriageHandler:       handlers.Triage,
		PsychologistHandler: handlers.Psychologist,
		IntentHandler:       handlers.Intent,
		ChatHandler:         handlers.Chat,
		JobHandler:          handlers.Job,
	}
}

func wireServer(log *logger.Logger, cfg *config.Config, rc httpx.RouterConfig) *httpx.Server {
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	return httpx.NewServer(log, httpx.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout.Duration,
	}, rc)
}
