package psychologist

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
	StatusError      = "error"
)

var ErrEmptyMessage = errors.New("message is empty")

// Reply is one server message on the socket.
type Reply struct {
	Status           string `json:"status"`
	Guidance         string `json:"guidance,omitempty"`
	FollowupQuestion string `json:"followup_question,omitempty"`
	History          []Turn `json:"history"`
	Message          string `json:"message,omitempty"`
}

// Session owns the history of one connection. It is not safe for concurrent
// use; the connection's reader goroutine is its only caller.
type Session struct {
	log     *logger.Logger
	agent   Agent
	history []Turn
}

func NewSession(log *logger.Logger, agent Agent) *Session {
	return &Session{log: log, agent: agent, history: []Turn{}}
}

// Handle runs one turn. The user turn is recorded before the agent runs and
// removed again if it fails, so history only ever holds whole turns.
func (s *Session) Handle(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	prior := s.History()
	mark := len(s.history)
	s.history = append(s.history, Turn{Role: RoleUser, Content: message})

	res, err := s.agent.Invoke(ctx, prior, message)
	if err != nil {
		s.history = s.history[:mark]
		s.log.Warn("Psychologist turn failed", "error", err, "history_len", mark)
		return Reply{Status: StatusError, Message: err.Error(), History: s.History()}, err
	}

	if res.Ready {
		s.history = append(s.history, Turn{Role: RoleAssistant, Content: res.Guidance})
		return Reply{Status: StatusComplete, Guidance: res.Guidance, History: s.History()}, nil
	}
	s.history = append(s.history, Turn{Role: RoleAssistant, Content: res.FollowupQuestion})
	return Reply{Status: StatusIncomplete, FollowupQuestion: res.FollowupQuestion, History: s.History()}, nil
}

// History returns a copy.
func (s *Session) History() []Turn {
	return append([]Turn{}, s.history...)
}
