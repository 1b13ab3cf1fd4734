package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

var ErrEmptyMessage = errors.New("message is empty")

type Extractor interface {
	Extract(ctx context.Context, message string) (Record, error)
}

type extractor struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewExtractor(log *logger.Logger, o oracle.Oracle) Extractor {
	return &extractor{log: log.With("service", "CaseExtractor"), o: o}
}

// Extract never substitutes an empty record for a malformed response; a
// schema violation is returned to the caller.
func (e *extractor) Extract(ctx context.Context, message string) (Record, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	schema := ExtractionSchema()
	raw, err := e.o.Extract(ctx, []oracle.Message{
		oracle.System(extractSystemPrompt),
		oracle.User(message),
	}, schema, oracle.Options{})
	if err != nil {
		return nil, fmt.Errorf("extract case: %w", err)
	}
	rec := make(map[string]any, len(raw))
	for _, f := range BaseFields {
		if v, ok := raw[f]; ok {
			rec[f] = v
		}
	}
	out := NormalizeRecord(rec)
	e.log.Debug("Extracted case", "fields", len(out), "primary_symptom", out.PrimarySymptom())
	return out, nil
}
