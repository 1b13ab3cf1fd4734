// Package gemini backs the oracle with the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/pkg/httpx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	Model      string
	FastModel  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

type Client struct {
	log        *logger.Logger
	client     *genai.Client
	model      string
	fastModel  string
	timeout    time.Duration
	maxRetries int
}

var _ oracle.Oracle = (*Client)(nil)

func New(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	fast := strings.TrimSpace(cfg.FastModel)
	if fast == "" {
		fast = model
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		log:        log.With("service", "OracleGemini"),
		client:     client,
		model:      model,
		fastModel:  fast,
		timeout:    timeout,
		maxRetries: maxRetries,
	}, nil
}

func (c *Client) Complete(ctx context.Context, messages []oracle.Message, opts oracle.Options) (string, error) {
	text, err := c.generate(ctx, messages, opts, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Extract asks for application/json and states the schema in the system
// instruction; the SDK's native schema support rejects several JSON Schema
// keywords the callers rely on.
func (c *Client) Extract(ctx context.Context, messages []oracle.Message, schema oracle.Schema, opts oracle.Options) (map[string]any, error) {
	text, err := c.generate(ctx, messages, opts, oracle.SchemaInstruction(schema))
	if err != nil {
		return nil, err
	}
	return oracle.DecodeObject(schema.Name, text)
}

func (c *Client) generate(ctx context.Context, messages []oracle.Message, opts oracle.Options, schemaInstruction string) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case oracle.RoleSystem:
			system = append(system, m.Content)
		case oracle.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if schemaInstruction != "" {
		system = append(system, schemaInstruction)
	}
	if len(contents) == 0 {
		return "", errors.New("gemini: no user content")
	}

	gc := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		gc.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		gc.Temperature = &t
	}
	if schemaInstruction != "" {
		gc.ResponseMIMEType = "application/json"
	}
	model := c.model
	if opts.Tier == oracle.TierFast {
		model = c.fastModel
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.Models.GenerateContent(cctx, model, contents, gc)
		cancel()
		if err == nil {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				return "", oracle.Unavailable(errors.New("empty upstream completion"))
			}
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || attempt == c.maxRetries {
			break
		}
		c.log.Warn("Oracle call failed; retrying", "attempt", attempt+1, "error", err)
		backoff := time.Duration(1<<attempt) * 500 * time.Millisecond
		if serr := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); serr != nil {
			lastErr = serr
			break
		}
	}
	return "", oracle.Unavailable(lastErr)
}
