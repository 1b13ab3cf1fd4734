package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type FollowupGenerator interface {
	Generate(ctx context.Context, missing []string, symptom string) (map[string]string, error)
}

type followupGenerator struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewFollowupGenerator(log *logger.Logger, o oracle.Oracle) FollowupGenerator {
	return &followupGenerator{log: log.With("service", "FollowupGenerator"), o: o}
}

func FallbackQuestion(field string) string {
	return fmt.Sprintf("What is the value of '%s'?", field)
}

// FallbackQuestions templates a question for every field.
func FallbackQuestions(missing []string) map[string]string {
	out := make(map[string]string, len(missing))
	for _, f := range missing {
		out[f] = FallbackQuestion(f)
	}
	return out
}

// Generate returns exactly one question per missing field. Keys the oracle
// adds are dropped and keys it leaves out are templated.
func (g *followupGenerator) Generate(ctx context.Context, missing []string, symptom string) (map[string]string, error) {
	missing = dedupe(missing)
	if len(missing) == 0 {
		return map[string]string{}, nil
	}
	raw, err := g.o.Extract(ctx, []oracle.Message{
		oracle.User(followupPrompt(missing, symptom)),
	}, followupSchema(missing), oracle.Options{Tier: oracle.TierFast})
	if err != nil {
		if oracle.IsSchemaViolation(err) {
			g.log.Warn("Follow-up questions unparseable; using templates", "error", err)
			return FallbackQuestions(missing), nil
		}
		return nil, fmt.Errorf("generate follow-ups: %w", err)
	}
	return fillQuestions(missing, func(f string) string {
		s, _ := raw[f].(string)
		return s
	}), nil
}

func fillQuestions(missing []string, lookup func(string) string) map[string]string {
	out := make(map[string]string, len(missing))
	for _, f := range missing {
		if q := strings.TrimSpace(lookup(f)); q != "" {
			out[f] = q
			continue
		}
		out[f] = FallbackQuestion(f)
	}
	return out
}
