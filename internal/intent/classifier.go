// Package intent routes a parent's message to one of the specialist agents.
package intent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const (
	ChildPsychologist = "Child Psychologist"
	MontessoriCoach   = "Montessori Coach"
	Nutritionist      = "Nutritionist"
	ParentingCoach    = "Parenting Coach"
	Pediatrician      = "Pediatrician"
	SleepConsultant   = "Sleep Consultant"
	OutOfScope        = "out_of_scope"
)

var Labels = []string{
	ChildPsychologist,
	MontessoriCoach,
	Nutritionist,
	ParentingCoach,
	Pediatrician,
	SleepConsultant,
	OutOfScope,
}

var ErrEmptyMessage = errors.New("message is empty")

type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Classifier interface {
	Classify(ctx context.Context, message string) ([]Prediction, error)
}

type classifier struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewClassifier(log *logger.Logger, o oracle.Oracle) Classifier {
	return &classifier{log: log.With("service", "IntentClassifier"), o: o}
}

const systemPrompt = `You classify a parent's message by which specialist should answer it.
Pick from exactly these labels: %s.
Use "out_of_scope" for anything that is not about parenting or a child's health, development, feeding or sleep.
Return the best label first with a confidence score between 0 and 1. You may add up to two runner-up labels.`

func schema() oracle.Schema {
	return oracle.Schema{
		Name: "classify_intent",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"labels": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"label": map[string]any{"type": "string", "enum": Labels},
							"score": map[string]any{"type": "number"},
						},
						"required": []string{"label", "score"},
					},
				},
			},
			"required": []string{"labels"},
		},
	}
}

// Classify returns predictions ordered by score. Labels outside the known set
// collapse into out_of_scope.
func (c *classifier) Classify(ctx context.Context, message string) ([]Prediction, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	raw, err := c.o.Extract(ctx, []oracle.Message{
		oracle.System(fmt.Sprintf(systemPrompt, strings.Join(quoted(Labels), ", "))),
		oracle.User(message),
	}, schema(), oracle.Options{Tier: oracle.TierFast, Temperature: oracle.Float(0)})
	if err != nil {
		return nil, fmt.Errorf("classify intent: %w", err)
	}
	preds := normalize(raw["labels"])
	c.log.Debug("Classified intent", "label", preds[0].Label, "score", preds[0].Score)
	return preds, nil
}

func normalize(v any) []Prediction {
	best := map[string]float64{}
	items, _ := v.([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		label := Canonical(fmt.Sprint(m["label"]))
		score, _ := m["score"].(float64)
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if cur, ok := best[label]; !ok || score > cur {
			best[label] = score
		}
	}
	if len(best) == 0 {
		return []Prediction{{Label: OutOfScope, Score: 1}}
	}
	out := make([]Prediction, 0, len(best))
	for l, s := range best {
		out = append(out, Prediction{Label: l, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Canonical maps a label case-insensitively onto the known set.
func Canonical(label string) string {
	l := strings.TrimSpace(label)
	for _, known := range Labels {
		if strings.EqualFold(l, known) {
			return known
		}
	}
	return OutOfScope
}

func quoted(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
