package model

import "slices"

// Status of a classification record.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FailureKind names why a record is an error record.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureAuthentication    FailureKind = "authentication"
	FailureRateLimited       FailureKind = "rate_limited"
	FailureResponseMalformed FailureKind = "response_malformed"
	FailureNetwork           FailureKind = "network"
	FailureInvalidInput      FailureKind = "invalid_input"
	FailureAPI               FailureKind = "api_error"
	FailureInternal          FailureKind = "internal"
)

// ErrorNotePrefix starts the notes of every error record. Persisted rows are
// recognised as failures by it on resume.
const ErrorNotePrefix = "Error: "

// Categories are the eight fixed classification axes, in output column order.
var Categories = []string{ //nolint:gochecknoglobals // fixed domain vocabulary
	"crime_type",
	"attack_vector",
	"victim_approach",
	"technology_platform",
	"victim_demographics",
	"impact_outcome",
	"social_engineering",
	"geographic_temporal",
}

// IsCategory reports whether name is one of Categories.
func IsCategory(name string) bool {
	return slices.Contains(Categories, name)
}

// Record is the per-case, per-iteration classification result.
type Record struct {
	CaseID     string
	Tags       map[string][]string
	Confidence float64
	Notes      string
	Status     Status
	Failure    FailureKind
}

// NewRecord returns an empty success record with every category present.
func NewRecord(caseID string) Record {
	tags := make(map[string][]string, len(Categories))
	for _, c := range Categories {
		tags[c] = []string{}
	}
	return Record{CaseID: caseID, Tags: tags, Status: StatusSuccess}
}

// ErrorRecord builds the fallback record used whenever a case could not be
// classified. Every dispatched case yields one, whatever went wrong.
func ErrorRecord(caseID string, kind FailureKind, msg string) Record {
	r := NewRecord(caseID)
	r.Status = StatusError
	r.Failure = kind
	r.Notes = ErrorNotePrefix + msg
	return r
}

// IsError reports whether the record carries no usable classification.
func (r Record) IsError() bool { return r.Status == StatusError }

// TagsFor returns the tags selected for category, never nil.
func (r Record) TagsFor(category string) []string {
	if t := r.Tags[category]; t != nil {
		return t
	}
	return []string{}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Tags = make(map[string][]string, len(r.Tags))
	for k, v := range r.Tags {
		out.Tags[k] = slices.Clone(v)
	}
	return out
}
