// Package mock is a scripted oracle for tests and offline runs.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/babycare-backend/internal/oracle"
)

type CompleteFunc func(ctx context.Context, messages []oracle.Message) (string, error)
type ExtractFunc func(ctx context.Context, messages []oracle.Message) (map[string]any, error)

type Call struct {
	Kind     string // "complete" or "extract"
	Schema   string
	Messages []oracle.Message
	Options  oracle.Options
}

type completeRule struct {
	contains string
	fn       CompleteFunc
}

type Oracle struct {
	mu        sync.Mutex
	completes []completeRule
	extracts  map[string]ExtractFunc
	calls     []Call
}

var _ oracle.Oracle = (*Oracle)(nil)

func New() *Oracle {
	return &Oracle{extracts: map[string]ExtractFunc{}}
}

// OnComplete answers Complete calls whose messages contain substr. Rules are
// tried in registration order; "" matches everything.
func (m *Oracle) OnComplete(substr string, fn CompleteFunc) *Oracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes = append(m.completes, completeRule{contains: substr, fn: fn})
	return m
}

// OnExtract answers Extract calls for the named schema.
func (m *Oracle) OnExtract(schema string, fn ExtractFunc) *Oracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracts[schema] = fn
	return m
}

func (m *Oracle) Complete(ctx context.Context, messages []oracle.Message, opts oracle.Options) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Kind: "complete", Messages: cloneMessages(messages), Options: opts})
	rules := append([]completeRule(nil), m.completes...)
	m.mu.Unlock()

	for _, r := range rules {
		if r.contains == "" || anyContains(messages, r.contains) {
			return r.fn(ctx, messages)
		}
	}
	return "", oracle.Unavailable(errors.New("mock: no scripted completion"))
}

// Extract round-trips the scripted object through JSON so callers see the
// same value types a real backend would produce.
func (m *Oracle) Extract(ctx context.Context, messages []oracle.Message, schema oracle.Schema, opts oracle.Options) (map[string]any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Kind: "extract", Schema: schema.Name, Messages: cloneMessages(messages), Options: opts})
	fn, ok := m.extracts[schema.Name]
	m.mu.Unlock()

	if !ok {
		return nil, oracle.Unavailable(fmt.Errorf("mock: no scripted extraction for %q", schema.Name))
	}
	obj, err := fn(ctx, messages)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return oracle.DecodeObject(schema.Name, string(raw))
}

func (m *Oracle) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Count returns how many calls matched kind and, for extractions, schema.
func (m *Oracle) Count(kind, schema string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Kind != kind {
			continue
		}
		if schema != "" && c.Schema != schema {
			continue
		}
		n++
	}
	return n
}

func Reply(text string) CompleteFunc {
	return func(context.Context, []oracle.Message) (string, error) { return text, nil }
}

func Object(obj map[string]any) ExtractFunc {
	return func(context.Context, []oracle.Message) (map[string]any, error) { return obj, nil }
}

func FailComplete(err error) CompleteFunc {
	return func(context.Context, []oracle.Message) (string, error) { return "", err }
}

func FailExtract(err error) ExtractFunc {
	return func(context.Context, []oracle.Message) (map[string]any, error) { return nil, err }
}

// Violation fails an extraction the way a backend does on unparseable output.
func Violation(schema string) ExtractFunc {
	return FailExtract(&oracle.SchemaViolationError{Schema: schema, Raw: "not json", Err: errors.New("invalid character")})
}

// LastUser returns the content of the final user message.
func LastUser(messages []oracle.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == oracle.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func anyContains(messages []oracle.Message, substr string) bool {
	for _, msg := range messages {
		if strings.Contains(msg.Content, substr) {
			return true
		}
	}
	return false
}

func cloneMessages(in []oracle.Message) []oracle.Message {
	return append([]oracle.Message(nil), in...)
}
