package triage

import (
	"context"
	"strings"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type StartRequest struct {
	Message string `json:"message"`
}

// UpdateRequest carries everything the previous turn returned. The controller
// keeps no session state between turns.
type UpdateRequest struct {
	PrimarySymptomAvailable bool              `json:"primary_symptom_available"`
	NewMessage              string            `json:"new_message"`
	ExistingSymptom         map[string]any    `json:"existing_symptom"`
	RequiredFields          []string          `json:"required_fields"`
	Followups               map[string]string `json:"followups"`
}

type Controller interface {
	Start(ctx context.Context, req StartRequest) (Outcome, error)
	Update(ctx context.Context, req UpdateRequest) (Outcome, error)
}

type controller struct {
	log       *logger.Logger
	extractor Extractor
	gate      Gate
	resolver  Resolver
	followups FollowupGenerator
	merger    Merger
	guidance  GuidanceGenerator
}

type Components struct {
	Extractor Extractor
	Gate      Gate
	Resolver  Resolver
	Followups FollowupGenerator
	Merger    Merger
	Guidance  GuidanceGenerator
}

// NewComponents builds every stage on one oracle.
func NewComponents(log *logger.Logger, o oracle.Oracle) Components {
	return Components{
		Extractor: NewExtractor(log, o),
		Gate:      NewGate(log, o),
		Resolver:  NewResolver(log, o),
		Followups: NewFollowupGenerator(log, o),
		Merger:    NewMerger(log, o),
		Guidance:  NewGuidanceGenerator(log, o),
	}
}

func NewController(log *logger.Logger, c Components) Controller {
	return &controller{
		log:       log.With("service", "TriageController"),
		extractor: c.Extractor,
		gate:      c.Gate,
		resolver:  c.Resolver,
		followups: c.Followups,
		merger:    c.Merger,
		guidance:  c.Guidance,
	}
}

func (c *controller) Start(ctx context.Context, req StartRequest) (Outcome, error) {
	return c.firstTurn(ctx, req.Message)
}

func (c *controller) Update(ctx context.Context, req UpdateRequest) (Outcome, error) {
	if !req.PrimarySymptomAvailable {
		return c.firstTurn(ctx, req.NewMessage)
	}
	if strings.TrimSpace(req.NewMessage) == "" {
		return Outcome{}, ErrEmptyMessage
	}

	required := dedupe(req.RequiredFields)
	if len(required) == 0 {
		required = BaseSet()
	}
	updated, err := c.merger.Merge(ctx, NormalizeRecord(req.ExistingSymptom), req.NewMessage, required)
	if err != nil {
		return Outcome{}, err
	}

	missing := Missing(updated, required)
	if len(missing) == 0 {
		return c.complete(ctx, updated)
	}

	// Keep the phrasing already shown for fields that are still open and only
	// ask the oracle about fields the caller has no question for.
	questions := make(map[string]string, len(missing))
	var uncovered []string
	for _, f := range missing {
		if q := strings.TrimSpace(req.Followups[f]); q != "" {
			questions[f] = q
			continue
		}
		uncovered = append(uncovered, f)
	}
	if len(uncovered) > 0 {
		fresh, err := c.followups.Generate(ctx, uncovered, updated.PrimarySymptom())
		if err != nil {
			return Outcome{}, err
		}
		for _, f := range uncovered {
			questions[f] = fresh[f]
		}
	}

	c.log.Debug("Update turn incomplete", "missing", len(missing), "reused_questions", len(missing)-len(uncovered))
	return Outcome{
		Kind:              KindIncomplete,
		Record:            updated,
		RequiredFields:    required,
		MissingFields:     missing,
		FollowupQuestions: questions,
	}, nil
}

func (c *controller) firstTurn(ctx context.Context, message string) (Outcome, error) {
	rec, err := c.extractor.Extract(ctx, message)
	if err != nil {
		return Outcome{}, err
	}
	primary := rec.PrimarySymptom()
	ok, err := c.gate.Valid(ctx, primary)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		c.log.Info("Primary symptom rejected", "symptom", primary)
		return Rejected(), nil
	}

	required, err := c.resolver.Resolve(ctx, primary)
	if err != nil {
		return Outcome{}, err
	}

	missing := Missing(rec, required)
	if len(missing) == 0 {
		return c.complete(ctx, rec)
	}
	questions, err := c.followups.Generate(ctx, missing, primary)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Kind:              KindIncomplete,
		Record:            rec,
		RequiredFields:    required,
		MissingFields:     missing,
		FollowupQuestions: questions,
	}, nil
}

func (c *controller) complete(ctx context.Context, rec Record) (Outcome, error) {
	text, err := c.guidance.Generate(ctx, rec)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindComplete, Record: rec, Guidance: text}, nil
}
