package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/oracle/mock"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

func TestClassifyOrdersAndCanonicalizes(t *testing.T) {
	o := mock.New().OnExtract("classify_intent", mock.Object(map[string]any{
		"labels": []any{
			map[string]any{"label": "sleep consultant", "score": 0.2},
			map[string]any{"label": "Pediatrician", "score": 0.93},
			map[string]any{"label": "Astrologer", "score": 0.4},
			map[string]any{"label": "Pediatrician", "score": 0.5},
		},
	}))
	got, err := NewClassifier(logger.Nop(), o).Classify(context.Background(), "my baby has a fever")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []Prediction{
		{Label: Pediatrician, Score: 0.93},
		{Label: OutOfScope, Score: 0.4},
		{Label: SleepConsultant, Score: 0.2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("predictions (-want +got):\n%s", diff)
	}
}

func TestClassifyEmptyResultIsOutOfScope(t *testing.T) {
	o := mock.New().OnExtract("classify_intent", mock.Object(map[string]any{"labels": []any{}}))
	got, err := NewClassifier(logger.Nop(), o).Classify(context.Background(), "what's the weather")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if diff := cmp.Diff([]Prediction{{Label: OutOfScope, Score: 1}}, got); diff != "" {
		t.Fatalf("predictions (-want +got):\n%s", diff)
	}
}

func TestClassifyErrors(t *testing.T) {
	c := NewClassifier(logger.Nop(), mock.New())
	if _, err := c.Classify(context.Background(), " "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("want ErrEmptyMessage, got %v", err)
	}
	if _, err := c.Classify(context.Background(), "hello"); !errors.Is(err, oracle.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
