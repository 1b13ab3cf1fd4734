// Package oaihttp talks to any OpenAI-compatible chat completions endpoint
// over plain HTTP.
package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

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
	// SchemaRetries is how many extra attempts a malformed structured
	// response gets before it is reported as a schema violation.
	SchemaRetries int
}

type Client struct {
	log *logger.Logger

	baseURL   string
	apiKey    string
	model     string
	fastModel string

	timeout       time.Duration
	maxRetries    int
	schemaRetries int

	httpClient *http.Client
}

var _ oracle.Oracle = (*Client)(nil)

func New(log *logger.Logger, cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oaihttp: base_url required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("oaihttp: model required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	schemaRetries := cfg.SchemaRetries
	if schemaRetries <= 0 {
		schemaRetries = 1
	}
	fast := strings.TrimSpace(cfg.FastModel)
	if fast == "" {
		fast = strings.TrimSpace(cfg.Model)
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		log:           log.With("service", "OracleOAIHTTP"),
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(cfg.APIKey),
		model:         strings.TrimSpace(cfg.Model),
		fastModel:     fast,
		timeout:       timeout,
		maxRetries:    maxRetries,
		schemaRetries: schemaRetries,
		httpClient:    &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient swaps the transport, for tests.
func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (*Client, error) {
	c, err := New(log, cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float64       `json:"temperature,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, messages []oracle.Message, opts oracle.Options) (string, error) {
	chatMsgs := toChatMessages(messages)
	if len(chatMsgs) == 0 {
		return "", errors.New("oaihttp: no messages")
	}
	req := chatCompletionRequest{
		Model:       c.modelFor(opts.Tier),
		Messages:    chatMsgs,
		Temperature: opts.Temperature,
	}
	text, err := c.chat(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) Extract(ctx context.Context, messages []oracle.Message, schema oracle.Schema, opts oracle.Options) (map[string]any, error) {
	chatMsgs := toChatMessages(messages)
	if len(chatMsgs) == 0 {
		return nil, errors.New("oaihttp: no messages")
	}

	var lastErr error
	for attempt := 0; attempt <= c.schemaRetries; attempt++ {
		req := chatCompletionRequest{
			Model:       c.modelFor(opts.Tier),
			Messages:    chatMsgs,
			Temperature: opts.Temperature,
		}
		if attempt == 0 {
			req.ResponseFormat = map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   schemaName(schema.Name),
					"schema": schema.Parameters,
				},
			}
		} else {
			// Some compatible servers ignore json_schema; fall back to stating it.
			req.ResponseFormat = map[string]any{"type": "json_object"}
			req.Messages = append(append([]chatMessage{}, chatMsgs...), chatMessage{
				Role:    oracle.RoleSystem,
				Content: oracle.SchemaInstruction(schema),
			})
		}

		text, err := c.chat(ctx, req)
		if err != nil {
			return nil, err
		}
		obj, err := oracle.DecodeObject(schema.Name, text)
		if err == nil {
			return obj, nil
		}
		lastErr = err
		c.log.Warn("Structured response did not parse", "schema", schema.Name, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (c *Client) modelFor(t oracle.Tier) string {
	if t == oracle.TierFast {
		return c.fastModel
	}
	return c.model
}

// chat runs one completion with bounded retries. A non-retryable upstream
// status escapes as oracle.ErrRejected; everything else is
// oracle.ErrUnavailable.
func (c *Client) chat(ctx context.Context, body chatCompletionRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var resp chatCompletionResponse
		err := c.doJSON(ctx, http.MethodPost, "/v1/chat/completions", body, &resp)
		if err == nil {
			text := extractChatText(resp)
			if strings.TrimSpace(text) == "" {
				return "", oracle.Unavailable(errors.New("empty upstream completion"))
			}
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(1<<attempt) * 500 * time.Millisecond
		var he *HTTPError
		if errors.As(err, &he) && he.RetryAfter > 0 {
			backoff = he.RetryAfter
		}
		c.log.Warn("Oracle call failed; retrying", "attempt", attempt+1, "backoff", backoff.String(), "error", err)
		if serr := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); serr != nil {
			lastErr = serr
			break
		}
	}
	var he *HTTPError
	if errors.As(lastErr, &he) && !httpx.IsRetryableHTTPStatus(he.StatusCode) {
		return "", oracle.Rejected(lastErr)
	}
	return "", oracle.Unavailable(lastErr)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 30*time.Second),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

func toChatMessages(messages []oracle.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.TrimSpace(m.Role)
		content := strings.TrimSpace(m.Content)
		if role == "" || content == "" {
			continue
		}
		out = append(out, chatMessage{Role: role, Content: content})
	}
	return out
}

func extractChatText(resp chatCompletionResponse) string {
	for _, ch := range resp.Choices {
		if strings.TrimSpace(ch.Message.Content) != "" {
			return ch.Message.Content
		}
		if strings.TrimSpace(ch.Text) != "" {
			return ch.Text
		}
	}
	return ""
}

var schemaNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func schemaName(name string) string {
	n := schemaNameRe.ReplaceAllString(strings.TrimSpace(name), "_")
	if n == "" {
		return "response"
	}
	if len(n) > 64 {
		n = n[:64]
	}
	return n
}
