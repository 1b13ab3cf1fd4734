package triage

import (
	"context"
	"fmt"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type GuidanceGenerator interface {
	Generate(ctx context.Context, r Record) (string, error)
}

type guidanceGenerator struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewGuidanceGenerator(log *logger.Logger, o oracle.Oracle) GuidanceGenerator {
	return &guidanceGenerator{log: log.With("service", "GuidanceGenerator"), o: o}
}

func (g *guidanceGenerator) Generate(ctx context.Context, r Record) (string, error) {
	text, err := g.o.Complete(ctx, []oracle.Message{
		oracle.System(guidanceSystemPrompt),
		oracle.User(guidancePrompt(r)),
	}, oracle.Options{})
	if err != nil {
		return "", fmt.Errorf("generate guidance: %w", err)
	}
	return text, nil
}
