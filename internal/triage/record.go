package triage

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Record is a partial case record keyed by field name. Values are string or
// []string.
type Record map[string]any

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if list, ok := v.([]string); ok {
			out[k] = append([]string(nil), list...)
			continue
		}
		out[k] = v
	}
	return out
}

// PrimarySymptom returns the lower-cased, trimmed primary symptom.
func (r Record) PrimarySymptom() string {
	s, _ := r[FieldPrimarySymptom].(string)
	return strings.ToLower(strings.TrimSpace(s))
}

// Has reports whether field holds a non-empty value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && !isEmptyValue(v)
}

func (r Record) JSON() string {
	if r == nil {
		return "{}"
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(r))
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// NormalizeRecord coerces oracle or caller supplied values to the declared
// field types and drops empty values.
func NormalizeRecord(raw map[string]any) Record {
	out := make(Record, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if nv, ok := normalizeValue(key, v); ok {
			out[key] = nv
		}
	}
	return out
}

func normalizeValue(field string, v any) (any, bool) {
	if TypeOf(field) == TypeList {
		list := toStringList(v)
		if len(list) == 0 {
			return nil, false
		}
		return list, true
	}
	s := scalarString(v)
	if s == "" {
		if list := toStringList(v); len(list) > 0 {
			s = strings.Join(list, ", ")
		}
	}
	if s == "" {
		return nil, false
	}
	return s, true
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}
	return ""
}

func toStringList(v any) []string {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []any:
		for _, it := range t {
			if s := scalarString(it); s != "" {
				items = append(items, s)
			}
		}
	case string:
		items = []string{t}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := scalarString(t[k]); s != "" {
				items = append(items, s)
			}
		}
	default:
		if s := scalarString(t); s != "" {
			items = []string{s}
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
