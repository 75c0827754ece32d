// Package catalog holds the static reference data published in the BOJ API
// manual: database codes, the parameter matrix, request limits, layer rules
// and the status/message table. Nothing in the request path depends on it;
// the CLI and gateway use it for discovery and optional strict checks.
package catalog

import (
	"strings"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/query"
)

// Source identifies the manual the tables were curated from.
const (
	SourceDocument = "api_manual.pdf"
	SourceDate     = "2026-02-18"
)

// Database is one appendix A entry.
type Database struct {
	Code       string `json:"code"`
	CategoryJA string `json:"category_ja"`
	NameJA     string `json:"name_ja"`
}

// Requirement is how an endpoint treats a parameter.
type Requirement string

const (
	Required    Requirement = "required"
	Optional    Requirement = "optional"
	Unsupported Requirement = "unsupported"
)

// Parameter is one row of the parameter matrix.
type Parameter struct {
	Name          string      `json:"name"`
	DescriptionJA string      `json:"description_ja"`
	AllowedValues string      `json:"allowed_values"`
	Code          Requirement `json:"code_api"`
	Layer         Requirement `json:"layer_api"`
	Metadata      Requirement `json:"metadata_api"`
	Notes         []string    `json:"notes,omitempty"`
}

// For returns the requirement for an endpoint path such as
// query.EndpointCode. Unknown endpoints report Unsupported.
func (p Parameter) For(endpoint string) Requirement {
	switch endpoint {
	case query.EndpointCode:
		return p.Code
	case query.EndpointLayer:
		return p.Layer
	case query.EndpointMetadata:
		return p.Metadata
	}
	return Unsupported
}

// Limit is one request limit.
type Limit struct {
	Scope    string `json:"api_scope"`
	Target   string `json:"target"`
	Max      uint32 `json:"max_value"`
	Overflow string `json:"overflow_behavior"`
}

// Message is one appendix B row.
type Message struct {
	Status    uint16 `json:"status"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
	Note      string `json:"note"`
}

// Snapshot is the whole catalog in one value.
type Snapshot struct {
	SourceDocument string      `json:"source_document"`
	SourceDate     string      `json:"source_date"`
	GeneralNotes   []string    `json:"general_notes"`
	FormatCodes    []string    `json:"format_codes"`
	LanguageCodes  []string    `json:"language_codes"`
	FrequencyCodes []string    `json:"frequency_codes"`
	Databases      []Database  `json:"databases"`
	Parameters     []Parameter `json:"parameters"`
	Limits         []Limit     `json:"limits"`
	LayerRules     []string    `json:"layer_rules"`
	Messages       []Message   `json:"messages"`
}

// Get returns a copy of the catalog. Callers may modify it freely.
func Get() Snapshot {
	return Snapshot{
		SourceDocument: SourceDocument,
		SourceDate:     SourceDate,
		GeneralNotes:   GeneralNotes(),
		FormatCodes:    FormatCodes(),
		LanguageCodes:  LanguageCodes(),
		FrequencyCodes: FrequencyCodes(),
		Databases:      Databases(),
		Parameters:     Parameters(),
		Limits:         Limits(),
		LayerRules:     LayerRules(),
		Messages:       Messages(),
	}
}

func GeneralNotes() []string   { return clone(generalNotes) }
func FormatCodes() []string    { return clone(formatCodes) }
func LanguageCodes() []string  { return clone(languageCodes) }
func FrequencyCodes() []string { return clone(frequencyCodes) }
func Databases() []Database    { return clone(databases) }
func Limits() []Limit          { return clone(limits) }
func LayerRules() []string     { return clone(layerRules) }
func Messages() []Message      { return clone(messages) }

// Parameters returns the parameter matrix. Notes slices are copied too.
func Parameters() []Parameter {
	out := clone(parameters)
	for i := range out {
		out[i].Notes = clone(out[i].Notes)
	}
	return out
}

// ─── Lookups ──────────────────────────────────────────────────────────────────

// FindDB looks up a database code, ignoring ASCII case.
func FindDB(code string) (Database, bool) {
	for _, d := range databases {
		if strings.EqualFold(d.Code, code) {
			return d, true
		}
	}
	return Database{}, false
}

// IsKnownDB reports whether code is listed in appendix A.
func IsKnownDB(code string) bool {
	_, ok := FindDB(code)
	return ok
}

// CheckDB returns a validation error for a database code not in the catalog.
func CheckDB(code string) error {
	if !IsKnownDB(code) {
		return bojerr.Validation("DB %q is not in the catalog (%s, %s)", code, SourceDocument, SourceDate)
	}
	return nil
}

// FindMessage looks up a MESSAGEID, ignoring ASCII case.
func FindMessage(id string) (Message, bool) {
	for _, m := range messages {
		if strings.EqualFold(m.MessageID, id) {
			return m, true
		}
	}
	return Message{}, false
}

// FindParameter looks up a parameter by name, ignoring ASCII case.
func FindParameter(name string) (Parameter, bool) {
	for _, p := range parameters {
		if strings.EqualFold(p.Name, name) {
			p.Notes = clone(p.Notes)
			return p, true
		}
	}
	return Parameter{}, false
}

// Categories returns the distinct database categories in catalog order.
func Categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range databases {
		if !seen[d.CategoryJA] {
			seen[d.CategoryJA] = true
			out = append(out, d.CategoryJA)
		}
	}
	return out
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}
