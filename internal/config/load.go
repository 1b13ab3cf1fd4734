package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/babycare-backend/internal/platform/envutil"
)

const DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// SecretSource resolves secret-bearing env vars (plain or Secret Manager refs).
type SecretSource interface {
	Get(ctx context.Context, name string) (string, error)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			CORSAllowOrigins:  []string{"*"},
		},
		Postgres: PostgresConfig{Port: "5432", SSLMode: "disable"},
		SQLite:   SQLiteConfig{Path: "babycare.db"},
		Redis:    RedisConfig{Channel: "babycare:jobs"},
		Oracle: OracleConfig{
			Backend: BackendOAIHTTP,
			OpenAI: OpenAIConfig{
				BaseURL:    "https://api.openai.com",
				Model:      "gpt-4o",
				FastModel:  "gpt-4o-mini",
				Timeout:    Duration{Duration: 60 * time.Second},
				MaxRetries: 3,
			},
			Gemini: GeminiConfig{Model: "gemini-2.5-flash", FastModel: "gemini-2.5-flash-lite"},
		},
		Auth: AuthConfig{
			JWKSURL: DefaultJWKSURL,
			KeysTTL: Duration{Duration: 6 * time.Hour},
		},
		Jobs: JobsConfig{SummarizerConcurrency: 4},
	}
}

// Load builds the config from defaults, an optional YAML file, and the
// environment, then resolves secrets through src (may be nil) and validates.
func Load(ctx context.Context, src SecretSource) (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("BABYCARE_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "babycare.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if src != nil {
		if err := resolveSecrets(ctx, cfg, src); err != nil {
			return nil, err
		}
	}

	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if origins := envutil.List("CORS_ALLOW_ORIGINS"); len(origins) > 0 {
		cfg.HTTP.CORSAllowOrigins = origins
	}

	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = envutil.String("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.Postgres.Name)
	cfg.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)

	cfg.SQLite.Path = envutil.String("SQLITE_PATH", cfg.SQLite.Path)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Oracle.Backend = envutil.String("ORACLE_BACKEND", cfg.Oracle.Backend)
	cfg.Oracle.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.Oracle.OpenAI.BaseURL)
	cfg.Oracle.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", cfg.Oracle.OpenAI.APIKey)
	cfg.Oracle.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.Oracle.OpenAI.Model)
	cfg.Oracle.OpenAI.FastModel = envutil.String("OPENAI_FAST_MODEL", cfg.Oracle.OpenAI.FastModel)
	cfg.Oracle.OpenAI.Timeout.Duration = envutil.Seconds("OPENAI_TIMEOUT_SECONDS", cfg.Oracle.OpenAI.Timeout.Duration)
	cfg.Oracle.OpenAI.MaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.Oracle.OpenAI.MaxRetries)
	cfg.Oracle.Gemini.APIKey = envutil.String("GEMINI_API_KEY", cfg.Oracle.Gemini.APIKey)
	cfg.Oracle.Gemini.Model = envutil.String("GEMINI_MODEL", cfg.Oracle.Gemini.Model)

	cfg.Auth.FirebaseProjectID = envutil.String("FIREBASE_PROJECT_ID", cfg.Auth.FirebaseProjectID)
	cfg.Auth.JWKSURL = envutil.String("AUTH_JWKS_URL", cfg.Auth.JWKSURL)

	cfg.Jobs.TriggerToken = envutil.String("JOBS_TRIGGER_TOKEN", cfg.Jobs.TriggerToken)
	cfg.Jobs.SummarizerConcurrency = envutil.Int("SUMMARIZER_CONCURRENCY", cfg.Jobs.SummarizerConcurrency)
}

// Only values that came from the environment are dereferenced, so a YAML
// literal is never sent to Secret Manager.
func resolveSecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	targets := []struct {
		env string
		dst *string
	}{
		{"OPENAI_API_KEY", &cfg.Oracle.OpenAI.APIKey},
		{"GEMINI_API_KEY", &cfg.Oracle.Gemini.APIKey},
		{"POSTGRES_PASSWORD", &cfg.Postgres.Password},
		{"JOBS_TRIGGER_TOKEN", &cfg.Jobs.TriggerToken},
	}
	for _, t := range targets {
		if strings.TrimSpace(os.Getenv(t.env)) == "" {
			continue
		}
		v, err := src.Get(ctx, t.env)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", t.env, err)
		}
		*t.dst = v
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}
	cfg.Oracle.Backend = strings.ToLower(strings.TrimSpace(cfg.Oracle.Backend))
	switch cfg.Oracle.Backend {
	case "openai_http", "oai_http", "openai":
		cfg.Oracle.Backend = BackendOAIHTTP
	case "go-openai", "sdk":
		cfg.Oracle.Backend = BackendGoGPT
	}
	cfg.Oracle.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Oracle.OpenAI.BaseURL), "/")
	if cfg.Oracle.OpenAI.FastModel == "" {
		cfg.Oracle.OpenAI.FastModel = cfg.Oracle.OpenAI.Model
	}
	if cfg.Oracle.Gemini.FastModel == "" {
		cfg.Oracle.Gemini.FastModel = cfg.Oracle.Gemini.Model
	}
	if cfg.Auth.JWKSURL == "" {
		cfg.Auth.JWKSURL = DefaultJWKSURL
	}
	if cfg.Auth.KeysTTL.Duration <= 0 {
		cfg.Auth.KeysTTL = Duration{Duration: 6 * time.Hour}
	}
	if cfg.Jobs.SummarizerConcurrency <= 0 {
		cfg.Jobs.SummarizerConcurrency = 4
	}
}

func (c *Config) Validate() error {
	switch c.Oracle.Backend {
	case BackendOAIHTTP, BackendGoGPT:
		if c.Oracle.OpenAI.APIKey == "" {
			return fmt.Errorf("oracle backend %q requires OPENAI_API_KEY", c.Oracle.Backend)
		}
		if c.Oracle.OpenAI.Model == "" {
			return errors.New("oracle openai model is required")
		}
	case BackendGemini:
		if c.Oracle.Gemini.APIKey == "" {
			return errors.New("oracle backend \"gemini\" requires GEMINI_API_KEY")
		}
	case BackendMock:
	default:
		return fmt.Errorf("unknown oracle backend %q", c.Oracle.Backend)
	}
	if c.Oracle.OpenAI.MaxRetries < 0 {
		return errors.New("oracle openai max_retries must be >= 0")
	}
	if c.Env == "production" || c.Env == "prod" {
		if c.Auth.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required in production")
		}
		if !c.Postgres.Enabled() {
			return errors.New("postgres settings are required in production")
		}
	}
	return nil
}
