package service

import (
	"fmt"
	"testing"

	"github.com/biomarker-recon-server/internal/domain"
)

func creatinineEntry() domain.BenchmarkEntry {
	return domain.BenchmarkEntry{
		CanonicalName: "Creatinine",
		MaleRange:     "0.74-1.35 mg/dL (65-119 µmol/L)",
		FemaleRange:   "0.59-1.04 mg/dL (52-92 µmol/L)",
		CanonicalUnit: "mg/dL",
		UnitAliases:   map[string]float64{"µmol/L": 0.0113},
	}
}

func TestMatchInterval(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)
	entry := domain.BenchmarkEntry{
		CanonicalName: "Glucose",
		MaleRange:     "3.9-5.6 mmol/L (70-100 mg/dL)",
		FemaleRange:   "3.9-5.6 mmol/L (70-100 mg/dL)",
		CanonicalUnit: "mmol/L",
	}

	tests := []struct {
		value     float64
		status    domain.Status
		direction domain.Direction
	}{
		{4.8, domain.IN_RANGE, domain.DIRECTION_NONE},
		{3.9, domain.IN_RANGE, domain.DIRECTION_NONE},
		{5.6, domain.IN_RANGE, domain.DIRECTION_NONE},
		{6.2, domain.OUT_OF_RANGE, domain.DIRECTION_HIGH},
		{3.1, domain.OUT_OF_RANGE, domain.DIRECTION_LOW},
	}
	for _, tt := range tests {
		obs := domain.CanonicalObservation{
			CanonicalName: "Glucose",
			Value:         domain.NumericValue(tt.value),
			Unit:          "mmol/L",
		}
		outcome := matcher.Match(obs, entry, domain.MALE)
		if outcome.Status != tt.status || outcome.Direction != tt.direction {
			t.Errorf("value %v: got (%s, %q), want (%s, %q)",
				tt.value, outcome.Status, outcome.Direction, tt.status, tt.direction)
		}
	}
}

func TestMatchUsesAlternateForMatchingUnit(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)

	// An observation left in µmol/L must be judged against the
	// parenthetical µmol/L range, not the outer mg/dL one.
	obs := domain.CanonicalObservation{
		CanonicalName: "Creatinine",
		Value:         domain.NumericValue(75),
		Unit:          "µmol/L",
	}
	outcome := matcher.Match(obs, creatinineEntry(), domain.MALE)
	if outcome.Status != domain.IN_RANGE {
		t.Errorf("status = %s, want %s", outcome.Status, domain.IN_RANGE)
	}
	if outcome.RangeDisplay != "0.74-1.35 mg/dL (65-119 µmol/L)" {
		t.Errorf("range display = %q, want full raw text", outcome.RangeDisplay)
	}
}

func TestMatchOuterUnitStillWins(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)

	obs := domain.CanonicalObservation{
		CanonicalName: "Creatinine",
		Value:         domain.NumericValue(1.1),
		Unit:          "mg/dL",
	}
	outcome := matcher.Match(obs, creatinineEntry(), domain.MALE)
	if outcome.Status != domain.IN_RANGE {
		t.Errorf("status = %s, want %s", outcome.Status, domain.IN_RANGE)
	}
}

func TestMatchGenderSelectsRange(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)
	obs := domain.CanonicalObservation{
		CanonicalName: "Creatinine",
		Value:         domain.NumericValue(1.1),
		Unit:          "mg/dL",
	}

	// 1.1 mg/dL is inside the male range but above the female one.
	female := matcher.Match(obs, creatinineEntry(), domain.FEMALE)
	if female.Status != domain.OUT_OF_RANGE || female.Direction != domain.DIRECTION_HIGH {
		t.Errorf("female: got (%s, %q), want out-of-range high", female.Status, female.Direction)
	}

	// Absent and non-binary genders fall back to the male range.
	for _, gender := range []domain.Gender{domain.MALE, domain.OTHER, ""} {
		outcome := matcher.Match(obs, creatinineEntry(), gender)
		if outcome.Status != domain.IN_RANGE {
			t.Errorf("gender %q: status = %s, want %s", gender, outcome.Status, domain.IN_RANGE)
		}
	}
}

func TestMatchNAValueIsUnknown(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)

	obs := domain.CanonicalObservation{CanonicalName: "Creatinine", Value: domain.NAValue()}
	outcome := matcher.Match(obs, creatinineEntry(), domain.MALE)
	if outcome.Status != domain.UNKNOWN || outcome.Direction != domain.DIRECTION_NONE {
		t.Errorf("got (%s, %q), want unknown with no direction", outcome.Status, outcome.Direction)
	}
	if outcome.RangeDisplay == "" {
		t.Error("range display must be populated even for N/A values")
	}
}

func TestMatchMalformedRangeIsUnknown(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)
	entry := domain.BenchmarkEntry{
		CanonicalName: "Cortisol",
		MaleRange:     "see lab reference",
		FemaleRange:   "see lab reference",
		CanonicalUnit: "µg/dL",
	}

	obs := domain.CanonicalObservation{
		CanonicalName: "Cortisol",
		Value:         domain.NumericValue(14),
		Unit:          "µg/dL",
	}
	outcome := matcher.Match(obs, entry, domain.MALE)
	if outcome.Status != domain.UNKNOWN {
		t.Errorf("status = %s, want %s", outcome.Status, domain.UNKNOWN)
	}
	if outcome.RangeDisplay != "see lab reference" {
		t.Errorf("range display = %q, want the raw text preserved", outcome.RangeDisplay)
	}
}

func TestMatchEmptyRangeDisplaysNA(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)
	entry := domain.BenchmarkEntry{CanonicalName: "Sodium", CanonicalUnit: "mmol/L"}

	obs := domain.CanonicalObservation{
		CanonicalName: "Sodium",
		Value:         domain.NumericValue(140),
		Unit:          "mmol/L",
	}
	outcome := matcher.Match(obs, entry, domain.MALE)
	if outcome.Status != domain.UNKNOWN || outcome.RangeDisplay != "N/A" {
		t.Errorf("got (%s, %q), want unknown with N/A display", outcome.Status, outcome.RangeDisplay)
	}
}

func TestMatchCachesParsedExpressions(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 4)
	entry := creatinineEntry()

	for i := 0; i < 10; i++ {
		obs := domain.CanonicalObservation{
			CanonicalName: "Creatinine",
			Value:         domain.NumericValue(1.0 + float64(i)*0.01),
			Unit:          "mg/dL",
		}
		outcome := matcher.Match(obs, entry, domain.MALE)
		if outcome.Status != domain.IN_RANGE {
			t.Fatalf("iteration %d: status = %s", i, outcome.Status)
		}
	}
	if got := matcher.cache.Len(); got != 1 {
		t.Errorf("cache holds %d expressions, want 1", got)
	}
}

func TestMatchComparatorDirections(t *testing.T) {
	matcher := NewRangeMatcher(testLogger(), 0)

	tests := []struct {
		rangeText string
		value     float64
		status    domain.Status
		direction domain.Direction
	}{
		{"<50", 62, domain.OUT_OF_RANGE, domain.DIRECTION_HIGH},
		{"<50", 40, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"≥40", 35, domain.OUT_OF_RANGE, domain.DIRECTION_LOW},
		{"≥40", 40, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"≤41 U/L", 41, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"≤41 U/L", 44, domain.OUT_OF_RANGE, domain.DIRECTION_HIGH},
	}
	for i, tt := range tests {
		entry := domain.BenchmarkEntry{
			CanonicalName: fmt.Sprintf("Marker-%d", i),
			MaleRange:     tt.rangeText,
			FemaleRange:   tt.rangeText,
			CanonicalUnit: "U/L",
		}
		obs := domain.CanonicalObservation{
			CanonicalName: entry.CanonicalName,
			Value:         domain.NumericValue(tt.value),
			Unit:          "U/L",
		}
		outcome := matcher.Match(obs, entry, domain.MALE)
		if outcome.Status != tt.status || outcome.Direction != tt.direction {
			t.Errorf("%q value %v: got (%s, %q), want (%s, %q)",
				tt.rangeText, tt.value, outcome.Status, outcome.Direction, tt.status, tt.direction)
		}
	}
}
