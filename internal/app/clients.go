package app

import (
	"context"
	"fmt"

	"github.com/yungbote/babycare-backend/internal/auth"
	"github.com/yungbote/babycare-backend/internal/config"
	"github.com/yungbote/babycare-backend/internal/jobs/bus"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/oracle/gemini"
	"github.com/yungbote/babycare-backend/internal/oracle/gogpt"
	"github.com/yungbote/babycare-backend/internal/oracle/mock"
	"github.com/yungbote/babycare-backend/internal/oracle/oaihttp"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Clients struct {
	Oracle   oracle.Oracle
	Verifier auth.Verifier
	JobBus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	o, err := wireOracle(ctx, log, cfg.Oracle)
	if err != nil {
		return Clients{}, err
	}
	var observe oracle.ObserveFunc
	if metrics != nil {
		observe = metrics.ObserveOracle
	}
	o = oracle.Instrument(o, cfg.Oracle.Backend, observe)

	verifier, err := wireVerifier(log, cfg.Auth)
	if err != nil {
		return Clients{}, err
	}

	b, err := bus.New(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init job bus: %w", err)
	}

	return Clients{Oracle: o, Verifier: verifier, JobBus: b}, nil
}

func wireOracle(ctx context.Context, log *logger.Logger, cfg config.OracleConfig) (oracle.Oracle, error) {
	log.Info("Oracle backend", "backend", cfg.Backend)
	switch cfg.Backend {
	case config.BackendOAIHTTP:
		c, err := oaihttp.New(log, oaihttp.Config{
			BaseURL:       cfg.OpenAI.BaseURL,
			APIKey:        cfg.OpenAI.APIKey,
			Model:         cfg.OpenAI.Model,
			FastModel:     cfg.OpenAI.FastModel,
			Timeout:       cfg.OpenAI.Timeout.Duration,
			MaxRetries:    cfg.OpenAI.MaxRetries,
			SchemaRetries: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("init oracle: %w", err)
		}
		return c, nil
	case config.BackendGoGPT:
		c, err := gogpt.New(log, gogpt.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.Model,
			FastModel:  cfg.OpenAI.FastModel,
			Timeout:    cfg.OpenAI.Timeout.Duration,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("init oracle: %w", err)
		}
		return c, nil
	case config.BackendGemini:
		c, err := gemini.New(ctx, log, gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			FastModel:  cfg.Gemini.FastModel,
			Timeout:    cfg.OpenAI.Timeout.Duration,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("init oracle: %w", err)
		}
		return c, nil
	case config.BackendMock:
		log.Warn("Using the scripted offline oracle")
		return offlineOracle(), nil
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}

// offlineOracle answers every prompt with a fixed, plausible reply so the API
// can be exercised end to end without a model.
func offlineOracle() *mock.Oracle {
	return mock.New().
		OnExtract("symptom_parser", mock.Object(map[string]any{
			"primary_symptom":     "fever",
			"duration":            "1 day",
			"age":                 "2 years",
			"severity":            "mild",
			"associated_symptoms": []string{"cough"},
		})).
		OnExtract("symptom_merge", mock.Object(map[string]any{})).
		OnExtract("required_fields", mock.Object(map[string]any{"fields": []string{}})).
		OnExtract("followup_questions", mock.Object(map[string]any{})).
		OnExtract("check_completeness", mock.Object(map[string]any{"ready_to_answer": true})).
		OnExtract("classify_intent", mock.Object(map[string]any{
			"labels": []any{map[string]any{"label": "Pediatrician", "score": 1.0}},
		})).
		OnExtract("summary_merge", mock.Object(map[string]any{"summary": []string{}})).
		OnComplete("was extracted as a child's primary symptom", mock.Reply("yes")).
		OnComplete("", mock.Reply("This is an offline reply. Configure ORACLE_BACKEND for real guidance."))
}

func wireVerifier(log *logger.Logger, cfg config.AuthConfig) (auth.Verifier, error) {
	if cfg.FirebaseProjectID == "" {
		log.Warn("FIREBASE_PROJECT_ID not set, accepting unsigned development tokens")
		return auth.StaticVerifier{}, nil
	}
	v, err := auth.NewFirebaseVerifier(log, auth.Config{
		ProjectID: cfg.FirebaseProjectID,
		JWKSURL:   cfg.JWKSURL,
		KeysTTL:   cfg.KeysTTL.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("init verifier: %w", err)
	}
	return v, nil
}
