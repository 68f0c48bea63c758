package rangeexpr

import (
	"testing"

	"github.com/biomarker-recon-server/internal/domain"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		min  float64
		max  float64
		unit string
	}{
		{"interval with unit", "162-240 mg/dL", 162, 240, "mg/dL"},
		{"interval without unit", "0.4-4.0", 0.4, 4.0, ""},
		{"en dash", "30–100 ng/mL", 30, 100, "ng/mL"},
		{"decimal comma", "0,68-1,13 mg/dL", 0.68, 1.13, "mg/dL"},
		{"no spaces", "12-22pmol/L", 12, 22, "pmol/L"},
		{"swapped bounds normalized", "240-162 mg/dL", 162, 240, "mg/dL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := Parse(tt.raw)
			if expr.Kind != Interval {
				t.Fatalf("Parse(%q).Kind = %s, want interval", tt.raw, expr.Kind)
			}
			if expr.Min != tt.min || expr.Max != tt.max {
				t.Errorf("bounds = [%v,%v], want [%v,%v]", expr.Min, expr.Max, tt.min, tt.max)
			}
			if expr.Min > expr.Max {
				t.Error("parser must guarantee min <= max")
			}
			if expr.Unit != tt.unit {
				t.Errorf("unit = %q, want %q", expr.Unit, tt.unit)
			}
			if expr.Raw != tt.raw {
				t.Errorf("raw = %q, want %q", expr.Raw, tt.raw)
			}
		})
	}
}

func TestParseComparator(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  Kind
		bound float64
		unit  string
	}{
		{"less than", "<50", LessThan, 50, ""},
		{"less or equal glyph", "≤5.6", LessOrEqual, 5.6, ""},
		{"less or equal ascii", "<=5.6", LessOrEqual, 5.6, ""},
		{"greater than", ">1.0 mmol/L", GreaterThan, 1.0, "mmol/L"},
		{"greater or equal glyph", "≥40", GreaterOrEqual, 40, ""},
		{"greater or equal ascii", ">= 40 mg/dL", GreaterOrEqual, 40, "mg/dL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := Parse(tt.raw)
			if expr.Kind != tt.kind {
				t.Fatalf("Parse(%q).Kind = %s, want %s", tt.raw, expr.Kind, tt.kind)
			}
			if expr.Bound != tt.bound {
				t.Errorf("bound = %v, want %v", expr.Bound, tt.bound)
			}
			if expr.Unit != tt.unit {
				t.Errorf("unit = %q, want %q", expr.Unit, tt.unit)
			}
		})
	}
}

func TestParseAlternateUnit(t *testing.T) {
	expr := Parse("0.68-1.13 mg/dL (60-100 µmol/L)")

	if expr.Kind != Interval {
		t.Fatalf("outer kind = %s, want interval", expr.Kind)
	}
	if expr.Min != 0.68 || expr.Max != 1.13 || expr.Unit != "mg/dL" {
		t.Errorf("outer = [%v,%v] %q", expr.Min, expr.Max, expr.Unit)
	}
	if expr.Alternate == nil {
		t.Fatal("expected parenthetical alternate-unit sub-expression")
	}
	alt := expr.Alternate
	if alt.Kind != Interval || alt.Min != 60 || alt.Max != 100 || alt.Unit != "µmol/L" {
		t.Errorf("alternate = %s [%v,%v] %q", alt.Kind, alt.Min, alt.Max, alt.Unit)
	}
}

func TestParseComparatorWithParentheticalAlternate(t *testing.T) {
	// A parenthetical is not required to be an interval.
	expr := Parse("≤5.6 (≤100 mg/dL)")

	if expr.Kind != LessOrEqual || expr.Bound != 5.6 {
		t.Fatalf("outer = %s %v", expr.Kind, expr.Bound)
	}
	if expr.Alternate == nil {
		t.Fatal("expected alternate")
	}
	if expr.Alternate.Kind != LessOrEqual || expr.Alternate.Bound != 100 || expr.Alternate.Unit != "mg/dL" {
		t.Errorf("alternate = %s %v %q", expr.Alternate.Kind, expr.Alternate.Bound, expr.Alternate.Unit)
	}
}

func TestParseFirstParentheticalWins(t *testing.T) {
	expr := Parse("3.9-5.6 mmol/L (70-100 mg/dL) (0.7-1.0 g/L)")

	if expr.Alternate == nil {
		t.Fatal("expected alternate")
	}
	if expr.Alternate.Min != 70 || expr.Alternate.Max != 100 {
		t.Errorf("alternate bounds = [%v,%v], want first parenthetical [70,100]", expr.Alternate.Min, expr.Alternate.Max)
	}
}

func TestParseUnknownFallback(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"negative",
		"see attached report",
		"varies by age",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			expr := Parse(raw)
			if expr.Kind != Unknown {
				t.Errorf("Parse(%q).Kind = %s, want unknown", raw, expr.Kind)
			}
			if expr.Raw != raw {
				t.Errorf("unknown must preserve raw text, got %q", expr.Raw)
			}
		})
	}
}

func TestParseUnknownOuterKeepsAlternate(t *testing.T) {
	expr := Parse("normal (60-100 µmol/L)")

	if expr.Kind != Unknown {
		t.Fatalf("outer kind = %s, want unknown", expr.Kind)
	}
	if expr.Alternate == nil || expr.Alternate.Kind != Interval {
		t.Fatal("alternate should survive an unparseable outer expression")
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		value     float64
		status    domain.Status
		direction domain.Direction
	}{
		{"interval inside", "162-240 mg/dL", 200, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"interval at min", "162-240 mg/dL", 162, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"interval at max", "162-240 mg/dL", 240, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"interval above", "162-240 mg/dL", 241, domain.OUT_OF_RANGE, domain.DIRECTION_HIGH},
		{"interval below", "162-240 mg/dL", 161, domain.OUT_OF_RANGE, domain.DIRECTION_LOW},
		{"less than violated", "<50", 62, domain.OUT_OF_RANGE, domain.DIRECTION_HIGH},
		{"less than satisfied", "<50", 49, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"less than at bound", "<50", 50, domain.OUT_OF_RANGE, domain.DIRECTION_HIGH},
		{"less or equal at bound", "≤50", 50, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"greater or equal violated", "≥40", 35, domain.OUT_OF_RANGE, domain.DIRECTION_LOW},
		{"greater or equal at bound", "≥40", 40, domain.IN_RANGE, domain.DIRECTION_NONE},
		{"greater than at bound", ">40", 40, domain.OUT_OF_RANGE, domain.DIRECTION_LOW},
		{"unknown text", "see report", 40, domain.UNKNOWN, domain.DIRECTION_NONE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := Parse(tt.raw)
			status, direction := expr.Evaluate(tt.value)
			if status != tt.status || direction != tt.direction {
				t.Errorf("Evaluate(%v) = (%s,%s), want (%s,%s)",
					tt.value, status, direction, tt.status, tt.direction)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	expr := Parse("0.4-4.0 mIU/L")

	s1, d1 := expr.Evaluate(5.1)
	s2, d2 := expr.Evaluate(5.1)
	if s1 != s2 || d1 != d2 {
		t.Error("repeated evaluation of the same expression must be identical")
	}
	if expr.Min != 0.4 || expr.Max != 4.0 {
		t.Error("evaluation must not mutate the expression")
	}
}

func TestExprString(t *testing.T) {
	if got := Parse("162-240 mg/dL").String(); got != "162-240 mg/dL" {
		t.Errorf("String() = %q, want original text", got)
	}

	synthetic := &Expr{Kind: GreaterOrEqual, Bound: 1.3, Unit: "mmol/L"}
	if got := synthetic.String(); got != "≥1.3 mmol/L" {
		t.Errorf("synthetic String() = %q", got)
	}
}
