package config

import "time"

type Duration struct {
	time.Duration
}

type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Auth     AuthConfig     `yaml:"auth"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`
	CORSAllowOrigins  []string `yaml:"cors_allow_origins"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether enough is set to dial Postgres.
func (p PostgresConfig) Enabled() bool {
	return p.Host != "" && p.User != "" && p.Name != ""
}

// SQLiteConfig backs local development when Postgres is not configured.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type OracleConfig struct {
	Backend string       `yaml:"backend"`
	OpenAI  OpenAIConfig `yaml:"openai"`
	Gemini  GeminiConfig `yaml:"gemini"`
}

type OpenAIConfig struct {
	BaseURL    string   `yaml:"base_url"`
	APIKey     string   `yaml:"api_key"`
	Model      string   `yaml:"model"`
	FastModel  string   `yaml:"fast_model"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
}

type GeminiConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	FastModel string `yaml:"fast_model"`
}

type AuthConfig struct {
	FirebaseProjectID string   `yaml:"firebase_project_id"`
	JWKSURL           string   `yaml:"jwks_url"`
	KeysTTL           Duration `yaml:"keys_ttl"`
}

type JobsConfig struct {
	TriggerToken          string `yaml:"trigger_token"`
	SummarizerConcurrency int    `yaml:"summarizer_concurrency"`
}

const (
	BackendOAIHTTP = "oaihttp"
	BackendGoGPT   = "gogpt"
	BackendGemini  = "gemini"
	BackendMock    = "mock"
)
