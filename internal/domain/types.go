// Package domain contains core business entities and types for biomarker
// reconciliation: consolidating lab-report extractions from multiple source
// documents into one clinically interpretable record per patient.
package domain

import (
	"errors"
	"strings"
)

// Status represents the classification of a biomarker value against its
// gender-specific reference range.
type Status string

const (
	IN_RANGE     Status = "in-range"
	OUT_OF_RANGE Status = "out-of-range"
	UNKNOWN      Status = "unknown"
)

// Direction indicates which side of the reference range an out-of-range
// value falls on. Empty means no direction applies.
type Direction string

const (
	DIRECTION_HIGH Direction = "high"
	DIRECTION_LOW  Direction = "low"
	DIRECTION_NONE Direction = ""
)

// ConfidenceLevel is used both for patient-identity matching and for
// consolidation-discrepancy severity.
type ConfidenceLevel string

const (
	HIGH   ConfidenceLevel = "High"
	MEDIUM ConfidenceLevel = "Medium"
	LOW    ConfidenceLevel = "Low"
)

// Gender selects which reference range applies. Absent or OTHER defaults
// to the male range during matching.
type Gender string

const (
	MALE   Gender = "MALE"
	FEMALE Gender = "FEMALE"
	OTHER  Gender = "OTHER"
)

// SuggestedAction is the identity resolver's recommendation to the caller.
// The caller always confirms before a match is applied; misattribution of
// clinical data is the most severe failure mode in this system.
type SuggestedAction string

const (
	USE_EXISTING SuggestedAction = "use-existing"
	CREATE_NEW   SuggestedAction = "create-new"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyBatch        = errors.New("reconciliation run requires at least one document")
	ErrNoObservations    = errors.New("reconciliation run requires at least one biomarker observation")
	ErrInvalidStatus     = errors.New("invalid biomarker status")
	ErrInvalidConfidence = errors.New("invalid confidence level")
	ErrInvalidGender     = errors.New("invalid gender")
)

// IsValid validates that the Status is one of the supported classifications.
func (s Status) IsValid() bool {
	switch s {
	case IN_RANGE, OUT_OF_RANGE, UNKNOWN:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// LogFields returns structured logging fields for audit trails.
func (s Status) LogFields() map[string]any {
	return map[string]any{
		"status":          string(s),
		"is_valid":        s.IsValid(),
		"requires_review": s.RequiresReview(),
	}
}

// RequiresReview reports whether the status should be surfaced for
// clinical follow-up rather than silently accepted.
func (s Status) RequiresReview() bool {
	switch s {
	case OUT_OF_RANGE, UNKNOWN:
		return true
	case IN_RANGE:
		return false
	default:
		return true
	}
}

// IsValid validates the direction.
func (d Direction) IsValid() bool {
	switch d {
	case DIRECTION_HIGH, DIRECTION_LOW, DIRECTION_NONE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid validates the confidence level.
func (cl ConfidenceLevel) IsValid() bool {
	switch cl {
	case HIGH, MEDIUM, LOW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the confidence level.
func (cl ConfidenceLevel) String() string {
	return string(cl)
}

// AtMost caps the confidence at the given ceiling. Used when profile-level
// ambiguity must limit how strong an identity match can be reported.
func (cl ConfidenceLevel) AtMost(ceiling ConfidenceLevel) ConfidenceLevel {
	if cl.rank() > ceiling.rank() {
		return ceiling
	}
	return cl
}

func (cl ConfidenceLevel) rank() int {
	switch cl {
	case HIGH:
		return 3
	case MEDIUM:
		return 2
	case LOW:
		return 1
	default:
		return 0
	}
}

// IsValid validates the gender.
func (g Gender) IsValid() bool {
	switch g {
	case MALE, FEMALE, OTHER:
		return true
	default:
		return false
	}
}

// ParseGender maps free-text gender values extracted from documents to the
// canonical enum. Unrecognized input returns an empty Gender (absent).
func ParseGender(raw string) Gender {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return MALE
	case "F", "FEMALE":
		return FEMALE
	case "O", "OTHER", "X":
		return OTHER
	default:
		return ""
	}
}

// IsValid validates the suggested action.
func (sa SuggestedAction) IsValid() bool {
	switch sa {
	case USE_EXISTING, CREATE_NEW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the suggested action.
func (sa SuggestedAction) String() string {
	return string(sa)
}
