// Package psychologist runs the child-psychologist conversation: a completeness
// check that either asks one follow-up question or hands over to guidance.
package psychologist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type State int

const (
	StateCheckCompleteness State = iota
	StateGenerateGuidance
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCheckCompleteness:
		return "check_completeness"
	case StateGenerateGuidance:
		return "generate_guidance"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

type Result struct {
	Ready            bool
	FollowupQuestion string
	Guidance         string
}

// next is the only edge logic: a ready check goes to guidance, everything
// else ends the invocation.
func next(s State, r Result) State {
	switch s {
	case StateCheckCompleteness:
		if r.Ready {
			return StateGenerateGuidance
		}
		return StateDone
	default:
		return StateDone
	}
}

type Agent interface {
	Invoke(ctx context.Context, history []Turn, message string) (Result, error)
}

type agent struct {
	log *logger.Logger
	o   oracle.Oracle
}

func NewAgent(log *logger.Logger, o oracle.Oracle) Agent {
	return &agent{log: log.With("service", "PsychologistAgent"), o: o}
}

func (a *agent) Invoke(ctx context.Context, history []Turn, message string) (Result, error) {
	var res Result
	state := StateCheckCompleteness
	for state != StateDone {
		switch state {
		case StateCheckCompleteness:
			ready, question, err := a.checkCompleteness(ctx, history, message)
			if err != nil {
				return Result{}, err
			}
			res.Ready = ready
			res.FollowupQuestion = question
		case StateGenerateGuidance:
			text, err := a.generateGuidance(ctx, history, message)
			if err != nil {
				return Result{}, err
			}
			res.Guidance = text
		}
		a.log.Debug("Node finished", "state", state.String(), "ready", res.Ready)
		state = next(state, res)
	}
	return res, nil
}

func (a *agent) checkCompleteness(ctx context.Context, history []Turn, message string) (bool, string, error) {
	raw, err := a.o.Extract(ctx, []oracle.Message{
		oracle.System(completenessSystemPrompt),
		oracle.User(completenessPrompt(history, message)),
	}, completenessSchema(), oracle.Options{Temperature: oracle.Float(0)})
	if err != nil {
		return false, "", fmt.Errorf("check completeness: %w", err)
	}
	ready, ok := raw["ready_to_answer"].(bool)
	if !ok {
		return false, "", &oracle.SchemaViolationError{
			Schema: completenessSchemaName,
			Err:    errors.New("ready_to_answer is not a boolean"),
		}
	}
	if ready {
		return true, "", nil
	}
	question, _ := raw["followup_question"].(string)
	question = strings.TrimSpace(question)
	if question == "" {
		question = DefaultFollowup
	}
	return false, question, nil
}

func (a *agent) generateGuidance(ctx context.Context, history []Turn, message string) (string, error) {
	text, err := a.o.Complete(ctx, []oracle.Message{
		oracle.System(guidanceSystemPrompt),
		oracle.User(guidancePrompt(history, message)),
	}, oracle.Options{})
	if err != nil {
		return "", fmt.Errorf("generate guidance: %w", err)
	}
	return strings.TrimSpace(text), nil
}
