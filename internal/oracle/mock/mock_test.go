package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/babycare-backend/internal/oracle"
)

func TestCompleteRulesInOrder(t *testing.T) {
	m := New().
		OnComplete("gate", Reply("yes")).
		OnComplete("", Reply("fallback"))

	got, err := m.Complete(context.Background(), []oracle.Message{oracle.System("validity gate")}, oracle.Options{})
	if err != nil || got != "yes" {
		t.Fatalf("gate: got=%q err=%v", got, err)
	}
	got, _ = m.Complete(context.Background(), []oracle.Message{oracle.System("other")}, oracle.Options{})
	if got != "fallback" {
		t.Fatalf("fallback: got=%q", got)
	}
	if m.Count("complete", "") != 2 {
		t.Fatalf("count=%d", m.Count("complete", ""))
	}
}

func TestExtractRoundTripsTypes(t *testing.T) {
	m := New().OnExtract("s", Object(map[string]any{"list": []string{"a"}, "n": 3}))
	obj, err := m.Extract(context.Background(), nil, oracle.Schema{Name: "s"}, oracle.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, ok := obj["list"].([]any); !ok {
		t.Fatalf("list should decode as []any, got %T", obj["list"])
	}
	if _, ok := obj["n"].(float64); !ok {
		t.Fatalf("n should decode as float64, got %T", obj["n"])
	}
}

func TestUnscriptedIsUnavailable(t *testing.T) {
	m := New()
	_, err := m.Extract(context.Background(), nil, oracle.Schema{Name: "missing"}, oracle.Options{})
	if !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
