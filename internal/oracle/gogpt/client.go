// Package gogpt backs the oracle with the go-openai SDK. Structured
// extraction is a forced function call whose arguments are the object.
package gogpt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/pkg/httpx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	FastModel  string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

type Client struct {
	log        *logger.Logger
	api        *openai.Client
	model      string
	fastModel  string
	timeout    time.Duration
	maxRetries int
}

var _ oracle.Oracle = (*Client)(nil)

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gogpt: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gogpt: model required")
	}
	oc := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		oc.BaseURL = base
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	fast := strings.TrimSpace(cfg.FastModel)
	if fast == "" {
		fast = strings.TrimSpace(cfg.Model)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		log:        log.With("service", "OracleGoGPT"),
		api:        openai.NewClientWithConfig(oc),
		model:      strings.TrimSpace(cfg.Model),
		fastModel:  fast,
		timeout:    timeout,
		maxRetries: maxRetries,
	}, nil
}

func (c *Client) Complete(ctx context.Context, messages []oracle.Message, opts oracle.Options) (string, error) {
	req := c.request(messages, opts)
	resp, err := c.create(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", oracle.Unavailable(errors.New("empty upstream completion"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) Extract(ctx context.Context, messages []oracle.Message, schema oracle.Schema, opts oracle.Options) (map[string]any, error) {
	name := functionName(schema.Name)
	req := c.request(messages, opts)
	req.Tools = []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:       name,
			Parameters: schema.Parameters,
		},
	}}
	req.ToolChoice = openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: name},
	}

	resp, err := c.create(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &oracle.SchemaViolationError{Schema: schema.Name, Err: errors.New("no choices")}
	}
	msg := resp.Choices[0].Message
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == name {
			return oracle.DecodeObject(schema.Name, tc.Function.Arguments)
		}
	}
	// Some models answer in content despite the forced call.
	if strings.TrimSpace(msg.Content) != "" {
		return oracle.DecodeObject(schema.Name, msg.Content)
	}
	return nil, &oracle.SchemaViolationError{Schema: schema.Name, Err: errors.New("no tool call in response")}
}

func (c *Client) request(messages []oracle.Message, opts oracle.Options) openai.ChatCompletionRequest {
	model := c.model
	if opts.Tier == oracle.TierFast {
		model = c.fastModel
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := m.Role
		switch role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant:
		default:
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{Model: model, Messages: msgs}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	return req
}

func (c *Client) create(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(cctx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = classify(err)
		if ctx.Err() != nil || !httpx.IsRetryableError(lastErr) || attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(1<<attempt) * 500 * time.Millisecond
		c.log.Warn("Oracle call failed; retrying", "attempt", attempt+1, "error", lastErr)
		if serr := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); serr != nil {
			lastErr = serr
			break
		}
	}
	return openai.ChatCompletionResponse{}, oracle.Unavailable(lastErr)
}

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string       { return fmt.Sprintf("openai status=%d: %v", e.code, e.err) }
func (e *statusError) Unwrap() error       { return e.err }
func (e *statusError) HTTPStatusCode() int { return e.code }

// classify surfaces the SDK's HTTP status so retry decisions match the
// raw HTTP backend.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &statusError{code: apiErr.HTTPStatusCode, err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &statusError{code: reqErr.HTTPStatusCode, err: err}
	}
	return err
}

func functionName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "extract"
	}
	return b.String()
}
