package triage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Gate interface {
	Valid(ctx context.Context, symptom string) (bool, error)
}

type gate struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewGate(log *logger.Logger, o oracle.Oracle) Gate {
	return &gate{log: log.With("service", "ValidityGate"), o: o}
}

func (g *gate) Valid(ctx context.Context, symptom string) (bool, error) {
	symptom = strings.ToLower(strings.TrimSpace(symptom))
	if symptom == "" {
		return false, nil
	}
	reply, err := g.o.Complete(ctx, []oracle.Message{
		oracle.User(gatePrompt(symptom)),
	}, oracle.Options{Tier: oracle.TierFast, Temperature: oracle.Float(0)})
	if err != nil {
		return false, fmt.Errorf("validity gate: %w", err)
	}
	ok := isAffirmative(reply)
	g.log.Debug("Primary symptom checked", "symptom", symptom, "valid", ok)
	return ok, nil
}

// isAffirmative is true when the first word of reply is "yes".
func isAffirmative(reply string) bool {
	words := strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return len(words) > 0 && words[0] == "yes"
}
