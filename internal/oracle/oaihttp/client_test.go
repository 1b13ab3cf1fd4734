package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func newTestClient(t *testing.T, cfg Config, rt roundTripperFunc) *Client {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://upstream"
	}
	if cfg.Model == "" {
		cfg.Model = "main-model"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	c, err := NewWithHTTPClient(logger.Nop(), cfg, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestCompleteSendsModelAndAuth(t *testing.T) {
	c := newTestClient(t, Config{APIKey: "sk-test", FastModel: "fast-model"}, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth header=%q", got)
		}
		var in chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != "fast-model" {
			t.Fatalf("model=%q", in.Model)
		}
		if len(in.Messages) != 2 {
			t.Fatalf("messages=%d", len(in.Messages))
		}
		return jsonResponse(http.StatusOK, completion("  Yes  ")), nil
	})

	out, err := c.Complete(context.Background(), []oracle.Message{
		oracle.System("gate"),
		oracle.User("fever"),
	}, oracle.Options{Tier: oracle.TierFast})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Yes" {
		t.Fatalf("want=Yes got=%q", out)
	}
}

func TestCompleteRetriesThenUnavailable(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{MaxRetries: 2}, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusServiceUnavailable, map[string]any{"error": "overloaded"}), nil
	})
	c.timeout = time.Second

	start := time.Now()
	_, err := c.Complete(context.Background(), []oracle.Message{oracle.User("hi")}, oracle.Options{})
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls: want=3 got=%d", got)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("retries took too long")
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{MaxRetries: 3}, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "bad"}), nil
	})
	_, err := c.Complete(context.Background(), []oracle.Message{oracle.User("hi")}, oracle.Options{})
	if !errors.Is(err, oracle.ErrRejected) {
		t.Fatalf("want ErrRejected, got %v", err)
	}
	if errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("client error must not read as unavailable: %v", err)
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("want wrapped 400, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}
}

func TestExtractParsesFencedJSON(t *testing.T) {
	c := newTestClient(t, Config{}, func(req *http.Request) (*http.Response, error) {
		var in chatCompletionRequest
		_ = json.NewDecoder(req.Body).Decode(&in)
		if in.ResponseFormat["type"] != "json_schema" {
			t.Fatalf("response_format=%v", in.ResponseFormat)
		}
		return jsonResponse(http.StatusOK, completion("```json\n{\"primary_symptom\":\"fever\"}\n```")), nil
	})
	obj, err := c.Extract(context.Background(), []oracle.Message{oracle.User("fever")}, oracle.Schema{
		Name:       "parse symptom",
		Parameters: map[string]any{"type": "object"},
	}, oracle.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if obj["primary_symptom"] != "fever" {
		t.Fatalf("obj=%v", obj)
	}
}

func TestExtractSchemaViolationAfterRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{SchemaRetries: 1}, func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 2 {
			var in chatCompletionRequest
			_ = json.NewDecoder(req.Body).Decode(&in)
			last := in.Messages[len(in.Messages)-1]
			if last.Role != oracle.RoleSystem {
				t.Fatalf("retry should append schema instruction, got role=%q", last.Role)
			}
		}
		return jsonResponse(http.StatusOK, completion("not json at all")), nil
	})
	_, err := c.Extract(context.Background(), []oracle.Message{oracle.User("x")}, oracle.Schema{Name: "s"}, oracle.Options{})
	if !oracle.IsSchemaViolation(err) {
		t.Fatalf("want schema violation, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls: want=2 got=%d", got)
	}
}

func TestSchemaName(t *testing.T) {
	if got := schemaName("parse symptom!"); got != "parse_symptom_" {
		t.Fatalf("schemaName=%q", got)
	}
	if got := schemaName(""); got != "response" {
		t.Fatalf("schemaName(empty)=%q", got)
	}
}
