package psychologist

import (
	"encoding/json"
	"fmt"

	"github.com/yungbote/babycare-backend/internal/oracle"
)

const completenessSchemaName = "check_completeness"

const DefaultFollowup = "Could you tell me a little more about what you have noticed in your child's behavior, and when it started?"

const completenessSystemPrompt = "You are a child psychologist assistant helping a parent with a concern about their child's mental health."

const guidanceSystemPrompt = "You are a child psychologist. You give empathetic, professional and concise guidance to parents."

func completenessSchema() oracle.Schema {
	return oracle.Schema{
		Name: completenessSchemaName,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ready_to_answer":   map[string]any{"type": "boolean"},
				"followup_question": map[string]any{"type": []string{"string", "null"}},
			},
			"required": []string{"ready_to_answer", "followup_question"},
		},
	}
}

func historyJSON(history []Turn) string {
	if len(history) == 0 {
		return "[]"
	}
	b, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func completenessPrompt(history []Turn, message string) string {
	return fmt.Sprintf(`Here is the conversation so far:
%s

Here is the parent's latest message:
%q

Do you have enough information to give helpful psychological guidance?
If yes, set "ready_to_answer" to true and "followup_question" to null.
If not, set "ready_to_answer" to false and ask ONE clear, empathetic follow-up question in "followup_question" that gathers what is missing.`, historyJSON(history), message)
}

func guidancePrompt(history []Turn, message string) string {
	return fmt.Sprintf(`A parent has shared a concern about their child.

Conversation so far:
%s

Latest message from the parent:
%q

Give guidance that includes:
1. Suggested actions for the parent
2. What signs to monitor
3. When to seek professional help

Respond in natural language only.`, historyJSON(history), message)
}
