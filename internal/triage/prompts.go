package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

const extractSystemPrompt = `You extract structured symptom details from a parent's message about their child.
Fill only the fields the message actually states. Leave a field out rather than guessing.
"primary_symptom" is the single main complaint in a few words (for example "fever", "rash", "vomiting").
"associated_symptoms" lists any other symptoms mentioned alongside it.`

func gatePrompt(symptom string) string {
	return fmt.Sprintf(`The term %q was extracted as a child's primary symptom.

Is it a valid, specific pediatric symptom such as "fever", "rash" or "vomiting"?
Vague descriptions such as "not well" or "feeling off" are not valid.
Reply with exactly "yes" or "no".`, symptom)
}

func resolverPrompt(symptom string) string {
	base, _ := json.Marshal(BaseFields)
	return fmt.Sprintf(`You are a pediatric triage assistant.

The primary symptom is %q.

These fields are always collected: %s

List at most %d additional, clinically important fields to collect for this symptom.
Use short lower-case names. Do not repeat any of the fields above.
Return them in a JSON object as {"fields": [...]}.`, symptom, base, MaxExtraFields)
}

func followupPrompt(missing []string, symptom string) string {
	fields, _ := json.Marshal(missing)
	return fmt.Sprintf(`You are a pediatric triage assistant.

The primary symptom is %q.

Write one clear follow-up question for a parent for each of these missing fields:
%s

Return a JSON object keyed by field name, for example:
{"duration": "How long has it been going on?", "location": "Where on the body is it?"}`, symptom, fields)
}

func mergePrompt(existing Record, message string) string {
	return fmt.Sprintf(`You are a pediatric triage assistant.

This is the symptom record collected so far:
%s

The parent has now said: %q

Return the updated symptom record.

Rules:
- If the parent says there are no other symptoms (for example "no other symptoms", "no associated symptoms", "none", "nothing else", "no symptoms"), set "associated_symptoms" to ["none"].
- Otherwise add or update any fields the new message provides.
- Keep every existing value that the new message does not change. Never drop a field.`, existing.JSON(), strings.TrimSpace(message))
}

func guidancePrompt(r Record) string {
	pretty, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		pretty = []byte(r.JSON())
	}
	return fmt.Sprintf(`You are a pediatrician. A parent has shared this structured symptom information about their child:

%s

Using all of it, give guidance in three parts:
1. What the parent should do now
2. What symptoms or signs to monitor
3. When to seek urgent care

Be empathetic and concise.`, pretty)
}

const guidanceSystemPrompt = "You are a careful, empathetic pediatrician giving guidance to parents."
