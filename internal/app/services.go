package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/babycare-backend/internal/config"
	"github.com/yungbote/babycare-backend/internal/intent"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/jobs/summarizer"
	"github.com/yungbote/babycare-backend/internal/jobs/timeline"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
	"github.com/yungbote/babycare-backend/internal/psychologist"
	"github.com/yungbote/babycare-backend/internal/triage"
)

type Services struct {
	Triage       triage.Controller
	Psychologist psychologist.Agent
	Intent       intent.Classifier
	JobRunner    *jobs.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *config.Config, repos Repos, o oracle.Oracle, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	runner, err := wireJobs(db, log, cfg, repos, o, metrics)
	if err != nil {
		return Services{}, err
	}
	return Services{
		Triage:       triage.NewController(log, triage.NewComponents(log, o)),
		Psychologist: psychologist.NewAgent(log, o),
		Intent:       intent.NewClassifier(log, o),
		JobRunner:    runner,
	}, nil
}

// wireJobs builds the job runner on its own so the jobs CLI can share it
// without starting the HTTP side.
func wireJobs(db *gorm.DB, log *logger.Logger, cfg *config.Config, repos Repos, o oracle.Oracle, metrics *observability.Metrics) (*jobs.Runner, error) {
	registry := jobs.NewRegistry()
	handlers := []jobs.Handler{
		timeline.New(log, db, repos.History, repos.Timeline, repos.ETLStatus),
		summarizer.New(log, db, o, repos.History, repos.Summary, repos.ETLStatus, cfg.Jobs.SummarizerConcurrency),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return nil, fmt.Errorf("register job: %w", err)
		}
	}
	var observe jobs.ObserveFunc
	if metrics != nil {
		observe = metrics.ObserveJob
	}
	return jobs.NewRunner(log, registry, observe), nil
}
