package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/babycare-backend/internal/config"
	"github.com/yungbote/babycare-backend/internal/data/db"
	httpx "github.com/yungbote/babycare-backend/internal/http"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
	"github.com/yungbote/babycare-backend/internal/platform/secrets"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	DB       *gorm.DB
	Metrics  *observability.Metrics
	Repos    Repos
	Clients  Clients
	Services Services
	Server   *httpx.Server

	pg           *db.PostgresService
	secrets      *secrets.Reader
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	sec := secrets.NewReader(log)
	cfg, err := config.Load(ctx, sec)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: observability.ServiceName,
		Environment: cfg.Env,
		Version:     os.Getenv("APP_VERSION"),
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log, cfg.Postgres, cfg.SQLite)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	clientset, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset.Oracle, metrics)
	if err != nil {
		_ = clientset.JobBus.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, clientset, reposet, serviceset, metrics)
	middleware := wireMiddleware(log, clientset)
	server := wireServer(log, cfg, routerConfig(log, cfg, handlerset, middleware, metrics))

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Metrics:      metrics,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		Server:       server,
		pg:           pg,
		secrets:      sec,
		otelShutdown: otelShutdown,
	}, nil
}

// Start runs the background side: the job listener and metric collectors.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Services.JobRunner.Listen(ctx, a.Clients.JobBus); err != nil {
		return fmt.Errorf("start job listener: %w", err)
	}
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.Redis.Addr)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.JobBus != nil {
		if err := a.Clients.JobBus.Close(); err != nil {
			a.Log.Warn("job bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.secrets != nil {
		_ = a.secrets.Close()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	a.Log.Sync()
}
