// Package triage collects a pediatric symptom report across stateless turns
// and produces guidance once every required field is filled.
package triage

import (
	"strings"

	"github.com/yungbote/babycare-backend/internal/oracle"
)

const (
	FieldPrimarySymptom     = "primary_symptom"
	FieldDuration           = "duration"
	FieldAge                = "age"
	FieldSeverity           = "severity"
	FieldAssociatedSymptoms = "associated_symptoms"

	MaxExtraFields = 3
)

// BaseFields are required for every primary symptom, in this order.
var BaseFields = []string{
	FieldPrimarySymptom,
	FieldDuration,
	FieldAge,
	FieldSeverity,
	FieldAssociatedSymptoms,
}

type FieldType string

const (
	TypeString FieldType = "string"
	TypeList   FieldType = "array"
)

var knownFields = map[string]FieldType{
	FieldPrimarySymptom:         TypeString,
	FieldDuration:               TypeString,
	FieldAge:                    TypeString,
	FieldSeverity:               TypeString,
	FieldAssociatedSymptoms:     TypeList,
	"location":                  TypeString,
	"onset":                     TypeString,
	"behavior_change":           TypeString,
	"frequency":                 TypeString,
	"appearance":                TypeString,
	"immunization status":       TypeString,
	"hydration status":          TypeString,
	"temperature reading":       TypeString,
	"medication use":            TypeString,
	"recent travel history":     TypeString,
	"exposure to sick contacts": TypeString,
}

// TypeOf reports the declared type of a field. Unknown names are strings.
func TypeOf(field string) FieldType {
	if t, ok := knownFields[field]; ok {
		return t
	}
	return TypeString
}

func IsKnown(field string) bool {
	_, ok := knownFields[field]
	return ok
}

func IsBase(field string) bool {
	for _, f := range BaseFields {
		if f == field {
			return true
		}
	}
	return false
}

func BaseSet() []string {
	return append([]string(nil), BaseFields...)
}

func propertyFor(field string) map[string]any {
	if TypeOf(field) == TypeList {
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	}
	return map[string]any{"type": "string"}
}

// ExtractionSchema is the fixed first-turn extraction schema.
func ExtractionSchema() oracle.Schema {
	props := make(map[string]any, len(BaseFields))
	for _, f := range BaseFields {
		props[f] = propertyFor(f)
	}
	return oracle.Schema{
		Name: "symptom_parser",
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{},
		},
	}
}

// MergeSchema declares exactly the given fields and nothing else.
func MergeSchema(required []string) oracle.Schema {
	props := make(map[string]any, len(required))
	for _, f := range dedupe(required) {
		props[f] = propertyFor(f)
	}
	return oracle.Schema{
		Name: "symptom_merge",
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{},
		},
	}
}

func resolverSchema() oracle.Schema {
	return oracle.Schema{
		Name: "required_fields",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"fields": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"maxItems": MaxExtraFields,
				},
			},
			"required": []string{"fields"},
		},
	}
}

func followupSchema(missing []string) oracle.Schema {
	props := make(map[string]any, len(missing))
	for _, f := range missing {
		props[f] = map[string]any{"type": "string"}
	}
	return oracle.Schema{
		Name: "followup_questions",
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   append([]string(nil), missing...),
		},
	}
}

func normalizeFieldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// dedupe keeps first occurrences and drops blanks.
func dedupe(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
