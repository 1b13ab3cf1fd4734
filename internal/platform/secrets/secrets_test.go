package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type fakeAccessor struct {
	calls   []string
	payload map[string]string
	err     error
}

func (f *fakeAccessor) Access(_ context.Context, name string) ([]byte, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.payload[name]), nil
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestGetPlainValue(t *testing.T) {
	acc := &fakeAccessor{}
	r := NewReaderWith(logger.Nop(), envMap(map[string]string{"OPENAI_API_KEY": " sk-local "}), acc)
	got, err := r.Get(context.Background(), "OPENAI_API_KEY")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-local" {
		t.Fatalf("want=sk-local got=%q", got)
	}
	if len(acc.calls) != 0 {
		t.Fatalf("accessor should not be called for plain values, got %v", acc.calls)
	}
}

func TestGetResolvesAndCaches(t *testing.T) {
	acc := &fakeAccessor{payload: map[string]string{
		"projects/p/secrets/openai/versions/latest": "sk-remote\n",
	}}
	r := NewReaderWith(logger.Nop(), envMap(map[string]string{"OPENAI_API_KEY": "projects/p/secrets/openai"}), acc)
	for i := 0; i < 3; i++ {
		got, err := r.Get(context.Background(), "OPENAI_API_KEY")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != "sk-remote" {
			t.Fatalf("want=sk-remote got=%q", got)
		}
	}
	if len(acc.calls) != 1 {
		t.Fatalf("want one access call, got %d", len(acc.calls))
	}
}

func TestGetKeepsExplicitVersion(t *testing.T) {
	acc := &fakeAccessor{payload: map[string]string{"projects/p/secrets/db/versions/3": "pw"}}
	r := NewReaderWith(logger.Nop(), envMap(map[string]string{"POSTGRES_PASSWORD": "projects/p/secrets/db/versions/3"}), acc)
	if got, _ := r.Get(context.Background(), "POSTGRES_PASSWORD"); got != "pw" {
		t.Fatalf("want=pw got=%q", got)
	}
}

func TestGetOrFallsBackOnError(t *testing.T) {
	acc := &fakeAccessor{err: errors.New("permission denied")}
	r := NewReaderWith(logger.Nop(), envMap(map[string]string{"JOBS_TRIGGER_TOKEN": "projects/p/secrets/jobs"}), acc)
	if got := r.GetOr(context.Background(), "JOBS_TRIGGER_TOKEN", "dev"); got != "dev" {
		t.Fatalf("want=dev got=%q", got)
	}
}
