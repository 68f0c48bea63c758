package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const naLiteral = "N/A"

// Value is a biomarker measurement that may be missing. A missing value
// serializes as the literal "N/A" and always classifies as UNKNOWN.
type Value struct {
	Number float64
	Valid  bool
}

// NumericValue wraps a present measurement.
func NumericValue(n float64) Value {
	return Value{Number: n, Valid: true}
}

// NAValue is the missing-measurement sentinel.
func NAValue() Value {
	return Value{}
}

// String renders the value for display, using "N/A" when missing.
func (v Value) String() string {
	if !v.Valid {
		return naLiteral
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MarshalJSON serializes a present value as a JSON number and a missing
// value as the string "N/A".
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return json.Marshal(naLiteral)
	}
	return json.Marshal(v.Number)
}

// UnmarshalJSON accepts a JSON number, a numeric string, or "N/A"/null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumericValue(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ParseValue(s)
		return nil
	}
	if string(data) == "null" {
		*v = NAValue()
		return nil
	}
	return fmt.Errorf("value must be a number or %q", naLiteral)
}

// ParseValue parses a raw extracted value string. Non-numeric or absent
// input yields the N/A sentinel; parsing never fails.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, naLiteral) {
		return NAValue()
	}
	// Some labs print decimal commas.
	s = strings.ReplaceAll(s, ",", ".")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NAValue()
	}
	return NumericValue(n)
}

// RawObservation is one biomarker mention extracted from one source
// document. Produced by the external extraction collaborator; immutable.
type RawObservation struct {
	SourceDocumentID string     `json:"source_document_id"`
	BiomarkerNameRaw string     `json:"biomarker_name_raw"`
	ValueRaw         string     `json:"value_raw"`
	UnitRaw          string     `json:"unit_raw"`
	TestDate         *time.Time `json:"test_date,omitempty"`
}

// PatientProfileFragment is the per-document patient metadata. Any field
// may be absent; malformed fields are treated as absent, never as fatal.
type PatientProfileFragment struct {
	SourceDocumentID string     `json:"source_document_id"`
	Name             string     `json:"name,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Gender           Gender     `json:"gender,omitempty"`
	TestDate         *time.Time `json:"test_date,omitempty"`
}

// DocumentInput pairs one document's profile fragment with its extracted
// observations, as handed over by the extraction collaborator.
type DocumentInput struct {
	Profile      PatientProfileFragment `json:"profile"`
	Observations []RawObservation       `json:"observations"`
}

// CanonicalPatientProfile is the merged patient metadata for one
// reconciliation run. Never mutated after creation; a new run produces a
// new profile.
type CanonicalPatientProfile struct {
	Name          string          `json:"name,omitempty"`
	DateOfBirth   *time.Time      `json:"date_of_birth,omitempty"`
	Gender        Gender          `json:"gender,omitempty"`
	TestDate      *time.Time      `json:"test_date,omitempty"`
	Discrepancies []string        `json:"discrepancies"`
	Confidence    ConfidenceLevel `json:"confidence"`
}

// Discrepancy strings are prefixed with the conflicting field name so
// downstream consumers can tell identity conflicts from cosmetic ones.
const (
	FieldName        = "name"
	FieldDateOfBirth = "dateOfBirth"
	FieldGender      = "gender"
	FieldTestDate    = "testDate"
)

// HasIdentityConflict reports whether the source documents disagreed on an
// identity field (name or date of birth). An identity conflict caps the
// identity-match confidence at MEDIUM.
func (p *CanonicalPatientProfile) HasIdentityConflict() bool {
	for _, d := range p.Discrepancies {
		if strings.HasPrefix(d, FieldName+":") || strings.HasPrefix(d, FieldDateOfBirth+":") {
			return true
		}
	}
	return false
}

// BenchmarkEntry is one reference-range catalog row. Read-only during a
// reconciliation run.
type BenchmarkEntry struct {
	CanonicalName string             `json:"canonical_name"`
	AliasNames    []string           `json:"alias_names,omitempty"`
	MaleRange     string             `json:"male_range"`
	FemaleRange   string             `json:"female_range"`
	CanonicalUnit string             `json:"canonical_unit"`
	UnitAliases   map[string]float64 `json:"unit_aliases,omitempty"`
	Custom        bool               `json:"custom,omitempty"`
}

// RangeFor selects the reference range expression for the given gender.
// Absent or OTHER gender defaults to the male range.
func (e *BenchmarkEntry) RangeFor(gender Gender) string {
	if gender == FEMALE && e.FemaleRange != "" {
		return e.FemaleRange
	}
	if e.MaleRange != "" {
		return e.MaleRange
	}
	return e.FemaleRange
}

// Validate ensures a catalog entry is usable before it shadows a default.
func (e *BenchmarkEntry) Validate() error {
	if strings.TrimSpace(e.CanonicalName) == "" {
		return &ValidationError{Field: "canonical_name", Message: "canonical name is required", Value: e.CanonicalName}
	}
	if e.MaleRange == "" && e.FemaleRange == "" {
		return &ValidationError{Field: "male_range", Message: "at least one reference range is required", Value: ""}
	}
	return nil
}

// CanonicalObservation is a post-deduplication, post-normalization
// biomarker. At most one exists per canonical name per reconciliation run.
type CanonicalObservation struct {
	CanonicalName     string     `json:"canonical_name"`
	Value             Value      `json:"value"`
	Unit              string     `json:"unit"`
	TestDate          *time.Time `json:"test_date,omitempty"`
	Provenance        []string   `json:"provenance"`
	ConversionApplied bool       `json:"conversion_applied,omitempty"`
}

// ClientRecord is one row of the external client registry.
type ClientRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      Gender     `json:"gender,omitempty"`
	Email       string     `json:"email,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MatchResult is the confidence-tiered outcome of patient identity
// resolution. A match at any confidence still requires caller confirmation
// before being applied.
type MatchResult struct {
	Matched         bool            `json:"matched"`
	ClientID        string          `json:"client_id,omitempty"`
	Confidence      ConfidenceLevel `json:"confidence"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	Explanation     string          `json:"explanation,omitempty"`
}

// AnalysisRow is the final per-biomarker output handed to persistence.
type AnalysisRow struct {
	BiomarkerName       string    `json:"biomarker_name"`
	Value               Value     `json:"value"`
	Unit                string    `json:"unit"`
	OptimalRangeDisplay string    `json:"optimal_range_display"`
	Status              Status    `json:"status"`
	Direction           Direction `json:"direction,omitempty"`
}

// ReconciliationResult bundles the durable output of one run.
type ReconciliationResult struct {
	RunID            string                  `json:"run_id"`
	Profile          CanonicalPatientProfile `json:"profile"`
	Rows             []AnalysisRow           `json:"rows"`
	Match            MatchResult             `json:"match"`
	ProcessingTimeMs int                     `json:"processing_time_ms"`
	CreatedAt        time.Time               `json:"created_at"`
}
