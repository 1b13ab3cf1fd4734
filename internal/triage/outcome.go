package triage

import "encoding/json"

type Kind int

const (
	KindRejected Kind = iota
	KindIncomplete
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindIncomplete:
		return "incomplete"
	case KindComplete:
		return "complete"
	default:
		return "unknown"
	}
}

const (
	StatusIncomplete = "incomplete"
	StatusComplete   = "complete"

	RejectedQuestion = "Your question is vague, please provide more details starting with some symptoms"
)

// Outcome is the result of one turn. Rejected is carried on the wire as an
// "incomplete" status with primary_symptom_available=false.
type Outcome struct {
	Kind              Kind
	Record            Record
	RequiredFields    []string
	MissingFields     []string
	FollowupQuestions map[string]string
	Guidance          string
}

func Rejected() Outcome {
	return Outcome{
		Kind:              KindRejected,
		Record:            Record{},
		RequiredFields:    []string{},
		MissingFields:     []string{},
		FollowupQuestions: map[string]string{FieldPrimarySymptom: RejectedQuestion},
	}
}

func (o Outcome) PrimarySymptomAvailable() bool { return o.Kind != KindRejected }

type incompleteWire struct {
	Status                  string            `json:"status"`
	MissingFields           []string          `json:"missing_fields"`
	FollowupQuestions       map[string]string `json:"followup_questions"`
	ParsedSymptom           Record            `json:"parsed_symptom"`
	RequiredFields          []string          `json:"required_fields"`
	PrimarySymptomAvailable bool              `json:"primary_symptom_available"`
}

type completeWire struct {
	Status        string `json:"status"`
	ParsedSymptom Record `json:"parsed_symptom"`
	Guidance      string `json:"guidance"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Kind == KindComplete {
		return json.Marshal(completeWire{
			Status:        StatusComplete,
			ParsedSymptom: nonNilRecord(o.Record),
			Guidance:      o.Guidance,
		})
	}
	return json.Marshal(incompleteWire{
		Status:                  StatusIncomplete,
		MissingFields:           nonNil(o.MissingFields),
		FollowupQuestions:       nonNilMap(o.FollowupQuestions),
		ParsedSymptom:           nonNilRecord(o.Record),
		RequiredFields:          nonNil(o.RequiredFields),
		PrimarySymptomAvailable: o.PrimarySymptomAvailable(),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilRecord(r Record) Record {
	if r == nil {
		return Record{}
	}
	return r
}
