package triage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const NoneSymptom = "none"

type Merger interface {
	Merge(ctx context.Context, existing Record, message string, required []string) (Record, error)
}

type merger struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewMerger(log *logger.Logger, o oracle.Oracle) Merger {
	return &merger{log: log.With("service", "CaseMerger"), o: o}
}

// Merge folds message into existing and returns the full record. Existing
// non-empty values survive unless the oracle supplies a replacement.
func (m *merger) Merge(ctx context.Context, existing Record, message string, required []string) (Record, error) {
	base := NormalizeRecord(existing)
	required = dedupe(required)

	raw, err := m.o.Extract(ctx, []oracle.Message{
		oracle.User(mergePrompt(base, message)),
	}, MergeSchema(required), oracle.Options{})
	if err != nil {
		return nil, fmt.Errorf("merge case: %w", err)
	}

	allowed := make(map[string]struct{}, len(required))
	for _, f := range required {
		allowed[f] = struct{}{}
	}
	scoped := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, ok := allowed[k]; ok {
			scoped[k] = v
		}
	}
	update := NormalizeRecord(scoped)

	merged := base.Clone()
	for k, v := range update {
		merged[k] = v
	}

	switch assoc, ok := update[FieldAssociatedSymptoms]; {
	case ok && saysNone(assoc):
		merged[FieldAssociatedSymptoms] = []string{NoneSymptom}
	case !ok && StatesNoFurtherSymptoms(message):
		// The oracle left the list alone; a bare "no other symptoms" still answers it.
		merged[FieldAssociatedSymptoms] = []string{NoneSymptom}
	}

	m.log.Debug("Merged case", "before", len(base), "after", len(merged))
	return merged, nil
}

func saysNone(v any) bool {
	list, ok := v.([]string)
	if !ok {
		return false
	}
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), NoneSymptom) {
			return true
		}
	}
	return false
}

var noFurtherPhrases = map[string]struct{}{
	"none":                   {},
	"none at all":            {},
	"nothing":                {},
	"nothing else":           {},
	"no other symptoms":      {},
	"no other symptom":       {},
	"no associated symptoms": {},
	"no further symptoms":    {},
	"no more symptoms":       {},
	"no additional symptoms": {},
	"no symptoms":            {},
	"no other":               {},
}

// StatesNoFurtherSymptoms reports whether the whole message is one of the
// unambiguous "nothing else" answers. A phrase embedded in a longer message
// does not count.
func StatesNoFurtherSymptoms(message string) bool {
	norm := strings.Join(strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}), " ")
	if norm == "" {
		return false
	}
	_, ok := noFurtherPhrases[norm]
	return ok
}
