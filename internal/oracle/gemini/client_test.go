package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func candidate(text string) *http.Response {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": text}},
			},
		}},
	})
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := New(context.Background(), logger.Nop(), Config{
		APIKey:     "test-key",
		Model:      "gemini-test",
		BaseURL:    "http://upstream/",
		Timeout:    2 * time.Second,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestExtractStatesSchemaAndParses(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "gemini-test") {
			t.Fatalf("model not in path: %s", req.URL.Path)
		}
		raw, _ := io.ReadAll(req.Body)
		if !strings.Contains(string(raw), "ready_to_answer") {
			t.Fatalf("schema not stated in request: %s", raw)
		}
		if !strings.Contains(string(raw), "application/json") {
			t.Fatalf("json mime type missing: %s", raw)
		}
		return candidate(`{"ready_to_answer":false,"followup_question":"How old is your child?"}`), nil
	})
	obj, err := c.Extract(context.Background(), []oracle.Message{
		oracle.System("You check completeness."),
		oracle.User("my kid is anxious"),
	}, oracle.Schema{
		Name: "check_completeness",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"ready_to_answer": map[string]any{"type": "boolean"}},
		},
	}, oracle.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if obj["ready_to_answer"] != false {
		t.Fatalf("obj=%v", obj)
	}
}

func TestCompleteTransportFailureIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	_, err := c.Complete(context.Background(), []oracle.Message{oracle.User("hi")}, oracle.Options{})
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
