package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", `[1,2]`},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Fatalf("StripFences(%q): want=%q got=%q", tt.in, tt.want, got)
		}
	}
}

func TestUnavailableWrapsOnce(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := Unavailable(base)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, base) {
		t.Fatalf("want both sentinels, got %v", err)
	}
	if again := Unavailable(err); again != err {
		t.Fatalf("double wrap: %v", again)
	}
	if Unavailable(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestDecodeObject(t *testing.T) {
	if _, err := DecodeObject("s", `[1,2]`); !IsSchemaViolation(err) {
		t.Fatalf("array: want schema violation, got %v", err)
	}
	if _, err := DecodeObject("s", `null`); !IsSchemaViolation(err) {
		t.Fatalf("null: want schema violation, got %v", err)
	}
	obj, err := DecodeObject("s", "```json\n{\"ok\":true}\n```")
	if err != nil || obj["ok"] != true {
		t.Fatalf("obj=%v err=%v", obj, err)
	}
	wrapped := fmt.Errorf("merge: %w", &SchemaViolationError{Schema: "s"})
	if !IsSchemaViolation(wrapped) {
		t.Fatalf("wrapped violation not detected")
	}
}

type stubOracle struct{ err error }

func (s stubOracle) Complete(context.Context, []Message, Options) (string, error) { return "x", s.err }
func (s stubOracle) Extract(context.Context, []Message, Schema, Options) (map[string]any, error) {
	return nil, s.err
}

func TestInstrumentReportsStatus(t *testing.T) {
	var got []string
	observe := func(backend, op, status string, _ time.Duration) {
		got = append(got, backend+"/"+op+"/"+status)
	}
	ok := Instrument(stubOracle{}, "mock", observe)
	_, _ = ok.Complete(context.Background(), nil, Options{})
	bad := Instrument(stubOracle{err: Unavailable(errors.New("down"))}, "mock", observe)
	_, _ = bad.Extract(context.Background(), nil, Schema{}, Options{})

	want := []string{"mock/complete/ok", "mock/extract/unavailable"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("want=%v got=%v", want, got)
	}
}
