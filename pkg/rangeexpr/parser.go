// Package rangeexpr parses free-text medical reference-range expressions
// into structured predicates. Parsing is a total function: input that
// matches no production degrades to an Unknown expression rather than
// failing, so range matching never has to handle a parse error.
package rangeexpr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/biomarker-recon-server/internal/domain"
)

// Kind identifies the parsed predicate shape.
type Kind string

const (
	Interval       Kind = "INTERVAL"
	LessThan       Kind = "LESS_THAN"
	LessOrEqual    Kind = "LESS_OR_EQUAL"
	GreaterThan    Kind = "GREATER_THAN"
	GreaterOrEqual Kind = "GREATER_OR_EQUAL"
	Unknown        Kind = "UNKNOWN"
)

// Range expression patterns, tried in order. Numbers may use a decimal
// comma, comparators may be Unicode glyphs or their ASCII digraphs.
var (
	intervalPattern      = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*[-–—]\s*(\d+(?:[.,]\d+)?)\s*(.*)$`)
	comparatorPattern    = regexp.MustCompile(`^(<=|>=|<|>|≤|≥)\s*(\d+(?:[.,]\d+)?)\s*(.*)$`)
	parentheticalPattern = regexp.MustCompile(`\(([^)]*)\)`)
)

// Expr is a parsed reference-range predicate. An Expr may carry one
// alternate-unit sub-expression taken from a parenthetical block; the
// outer predicate is canonical and the alternate is consulted only when
// the observation's unit matches it or the outer match failed.
type Expr struct {
	Kind Kind
	// Min and Max bound an Interval.
	Min float64
	Max float64
	// Bound is the comparator threshold.
	Bound float64
	// Unit is the unit token trailing the numeric part, if any.
	Unit string
	// Raw preserves the original expression text for display.
	Raw string
	// Alternate is the first parenthetical sub-expression, if any.
	Alternate *Expr
}

// Parse parses a reference-range expression. It never fails: unmatched
// input returns an Unknown expression carrying the raw text.
func Parse(raw string) *Expr {
	text := strings.TrimSpace(raw)
	if text == "" {
		return &Expr{Kind: Unknown, Raw: raw}
	}

	// Strip every parenthetical block from the outer expression; only the
	// first becomes the alternate, later ones survive in Raw alone.
	outerText := text
	var parenText string
	if loc := parentheticalPattern.FindStringSubmatchIndex(text); loc != nil {
		parenText = text[loc[2]:loc[3]]
		outerText = strings.TrimSpace(parentheticalPattern.ReplaceAllString(text, " "))
	}

	expr := parseSimple(outerText)
	expr.Raw = raw

	if parenText != "" {
		if alt := parseSimple(parenText); alt.Kind != Unknown {
			alt.Raw = parenText
			expr.Alternate = alt
		}
	}

	return expr
}

// parseSimple parses a single interval or comparator with an optional
// trailing unit token.
func parseSimple(text string) *Expr {
	s := strings.TrimSpace(text)
	if s == "" {
		return &Expr{Kind: Unknown}
	}

	if m := intervalPattern.FindStringSubmatch(s); m != nil {
		min, err1 := parseNumber(m[1])
		max, err2 := parseNumber(m[2])
		if err1 == nil && err2 == nil {
			// Guarantee min <= max regardless of how the source wrote it.
			if min > max {
				min, max = max, min
			}
			return &Expr{Kind: Interval, Min: min, Max: max, Unit: cleanUnit(m[3])}
		}
	}

	if m := comparatorPattern.FindStringSubmatch(s); m != nil {
		bound, err := parseNumber(m[2])
		if err == nil {
			return &Expr{Kind: comparatorKind(m[1]), Bound: bound, Unit: cleanUnit(m[3])}
		}
	}

	return &Expr{Kind: Unknown}
}

func comparatorKind(op string) Kind {
	switch op {
	case "<":
		return LessThan
	case "≤", "<=":
		return LessOrEqual
	case ">":
		return GreaterThan
	case "≥", ">=":
		return GreaterOrEqual
	default:
		return Unknown
	}
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func cleanUnit(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",;:")
}

// Evaluate classifies a numeric value against the predicate. It is pure:
// the same expression and value always produce the same status and
// direction, so it can be re-run for display-only re-highlighting.
func (e *Expr) Evaluate(value float64) (domain.Status, domain.Direction) {
	switch e.Kind {
	case Interval:
		if value < e.Min {
			return domain.OUT_OF_RANGE, domain.DIRECTION_LOW
		}
		if value > e.Max {
			return domain.OUT_OF_RANGE, domain.DIRECTION_HIGH
		}
		return domain.IN_RANGE, domain.DIRECTION_NONE
	case LessThan:
		if value < e.Bound {
			return domain.IN_RANGE, domain.DIRECTION_NONE
		}
		return domain.OUT_OF_RANGE, domain.DIRECTION_HIGH
	case LessOrEqual:
		if value <= e.Bound {
			return domain.IN_RANGE, domain.DIRECTION_NONE
		}
		return domain.OUT_OF_RANGE, domain.DIRECTION_HIGH
	case GreaterThan:
		if value > e.Bound {
			return domain.IN_RANGE, domain.DIRECTION_NONE
		}
		return domain.OUT_OF_RANGE, domain.DIRECTION_LOW
	case GreaterOrEqual:
		if value >= e.Bound {
			return domain.IN_RANGE, domain.DIRECTION_NONE
		}
		return domain.OUT_OF_RANGE, domain.DIRECTION_LOW
	default:
		return domain.UNKNOWN, domain.DIRECTION_NONE
	}
}

// IsUnknown reports whether the outer predicate failed to parse.
func (e *Expr) IsUnknown() bool {
	return e.Kind == Unknown
}

// String renders the predicate for display, preferring the original text.
func (e *Expr) String() string {
	if e.Raw != "" {
		return e.Raw
	}
	switch e.Kind {
	case Interval:
		return strings.TrimSpace(fmt.Sprintf("%s-%s %s", formatNumber(e.Min), formatNumber(e.Max), e.Unit))
	case LessThan:
		return strings.TrimSpace(fmt.Sprintf("<%s %s", formatNumber(e.Bound), e.Unit))
	case LessOrEqual:
		return strings.TrimSpace(fmt.Sprintf("≤%s %s", formatNumber(e.Bound), e.Unit))
	case GreaterThan:
		return strings.TrimSpace(fmt.Sprintf(">%s %s", formatNumber(e.Bound), e.Unit))
	case GreaterOrEqual:
		return strings.TrimSpace(fmt.Sprintf("≥%s %s", formatNumber(e.Bound), e.Unit))
	default:
		return e.Raw
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
