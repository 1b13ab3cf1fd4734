package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Resolver interface {
	Resolve(ctx context.Context, symptom string) ([]string, error)
}

type resolver struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewResolver(log *logger.Logger, o oracle.Oracle) Resolver {
	return &resolver{log: log.With("service", "RequirementResolver"), o: o}
}

// Resolve returns the base fields followed by up to three symptom-specific
// ones. Malformed output degrades to the base set; an unreachable oracle does
// not.
func (r *resolver) Resolve(ctx context.Context, symptom string) ([]string, error) {
	raw, err := r.o.Extract(ctx, []oracle.Message{
		oracle.User(resolverPrompt(symptom)),
	}, resolverSchema(), oracle.Options{})
	if err != nil {
		if oracle.IsSchemaViolation(err) {
			r.log.Warn("Required fields unparseable; using base set", "symptom", symptom, "error", err)
			return BaseSet(), nil
		}
		return nil, fmt.Errorf("resolve required fields: %w", err)
	}
	extras, perr := parseExtras(raw["fields"])
	if perr != nil {
		r.log.Warn("Required fields malformed; using base set", "symptom", symptom, "error", perr)
		return BaseSet(), nil
	}
	return UnionFields(BaseFields, extras), nil
}

func parseExtras(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errors.New("fields is not an array")
	}
	out := make([]string, 0, len(list))
	for _, it := range list {
		s, ok := it.(string)
		if !ok {
			continue
		}
		if n := normalizeFieldName(s); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// UnionFields appends at most MaxExtraFields new names from extras to base,
// keeping order and dropping duplicates.
func UnionFields(base, extras []string) []string {
	out := dedupe(base)
	seen := make(map[string]struct{}, len(out))
	for _, f := range out {
		seen[f] = struct{}{}
	}
	added := 0
	for _, f := range extras {
		if added == MaxExtraFields {
			break
		}
		if _, ok := seen[f]; ok || f == "" {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
		added++
	}
	return out
}
