// Package oracle is the boundary to the language model. Callers build
// prompts and schemas; backends only move text and JSON across the wire.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Schema is a JSON Schema object the response must conform to.
type Schema struct {
	Name       string
	Parameters map[string]any
}

// Tier picks a model class. Backends map tiers onto configured model ids.
type Tier string

const (
	TierDefault Tier = ""
	TierFast    Tier = "fast"
)

type Options struct {
	Tier        Tier
	Temperature *float64
}

type Oracle interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	Extract(ctx context.Context, messages []Message, schema Schema, opts Options) (map[string]any, error)
}

var ErrUnavailable = errors.New("oracle unavailable")

// Unavailable marks err as a transport-level oracle failure.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// ErrRejected means the upstream answered with a non-retryable refusal, such
// as a bad credential or a malformed request.
var ErrRejected = errors.New("oracle rejected request")

func Rejected(err error) error {
	if err == nil || errors.Is(err, ErrRejected) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRejected, err)
}

// SchemaViolationError means the oracle answered, but not in the requested shape.
type SchemaViolationError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *SchemaViolationError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("oracle output violates schema %q: %v (raw=%q)", e.Schema, e.Err, raw)
	}
	return fmt.Sprintf("oracle output violates schema %q (raw=%q)", e.Schema, raw)
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }

func IsSchemaViolation(err error) bool {
	var sv *SchemaViolationError
	return errors.As(err, &sv)
}

// StripFences removes a surrounding ```lang ... ``` block.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// DecodeObject parses text as a JSON object.
func DecodeObject(schemaName, text string) (map[string]any, error) {
	clean := StripFences(text)
	var obj map[string]any
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, &SchemaViolationError{Schema: schemaName, Raw: text, Err: err}
	}
	if obj == nil {
		return nil, &SchemaViolationError{Schema: schemaName, Raw: text, Err: errors.New("not an object")}
	}
	return obj, nil
}

// DecodeInto parses text into out, reporting failures as schema violations.
func DecodeInto(schemaName, text string, out any) error {
	clean := StripFences(text)
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return &SchemaViolationError{Schema: schemaName, Raw: text, Err: err}
	}
	return nil
}

// SchemaInstruction is appended to the system prompt by backends that cannot
// enforce a schema natively.
func SchemaInstruction(s Schema) string {
	var b strings.Builder
	b.WriteString("Return ONLY a valid JSON object that conforms to the JSON Schema below. Do not include markdown or commentary.\n")
	if s.Name != "" {
		b.WriteString("Schema name: ")
		b.WriteString(s.Name)
		b.WriteString("\n")
	}
	if s.Parameters != nil {
		if raw, err := json.Marshal(s.Parameters); err == nil {
			b.WriteString("Schema:\n")
			b.Write(raw)
		}
	}
	return strings.TrimSpace(b.String())
}

func Float(v float64) *float64 { return &v }
