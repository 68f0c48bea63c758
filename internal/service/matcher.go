package service

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/domain"
	"github.com/biomarker-recon-server/pkg/rangeexpr"
)

// DefaultParseCacheSize bounds the parsed range expression cache when the
// configuration does not set one.
const DefaultParseCacheSize = 256

// MatchOutcome is the result of evaluating one observation against a
// benchmark range.
type MatchOutcome struct {
	Status       domain.Status
	Direction    domain.Direction
	RangeDisplay string
}

// RangeMatcher evaluates canonical observations against benchmark range
// expressions. Parsed expressions are cached by their raw text since the
// catalog reuses a small set of range strings across runs.
type RangeMatcher struct {
	logger *logrus.Logger
	cache  *lru.Cache[string, *rangeexpr.Expr]
}

// NewRangeMatcher creates a range matcher with an LRU cache of parsed
// expressions.
func NewRangeMatcher(logger *logrus.Logger, cacheSize int) *RangeMatcher {
	if cacheSize <= 0 {
		cacheSize = DefaultParseCacheSize
	}
	cache, _ := lru.New[string, *rangeexpr.Expr](cacheSize)
	return &RangeMatcher{logger: logger, cache: cache}
}

// Match evaluates the observation against the gender-appropriate range of the
// benchmark entry. N/A values and unparseable ranges yield an unknown status;
// the range display text is populated in every case.
func (m *RangeMatcher) Match(obs domain.CanonicalObservation, entry domain.BenchmarkEntry, gender domain.Gender) MatchOutcome {
	rangeText := entry.RangeFor(gender)
	outcome := MatchOutcome{
		Status:       domain.UNKNOWN,
		Direction:    domain.DIRECTION_NONE,
		RangeDisplay: displayRange(rangeText),
	}
	if !obs.Value.Valid {
		return outcome
	}

	expr := m.parse(rangeText)
	predicate := m.selectPredicate(expr, obs.Unit)
	if predicate.IsUnknown() {
		m.logger.WithFields(logrus.Fields{
			"biomarker": entry.CanonicalName,
			"range":     rangeText,
		}).Warn("Malformed range expression, status unknown")
		return outcome
	}

	outcome.Status, outcome.Direction = predicate.Evaluate(obs.Value.Number)
	return outcome
}

func (m *RangeMatcher) parse(text string) *rangeexpr.Expr {
	if cached, ok := m.cache.Get(text); ok {
		return cached
	}
	expr := rangeexpr.Parse(text)
	m.cache.Add(text, expr)
	return expr
}

// selectPredicate picks between the outer expression and its parenthetical
// alternate. The alternate wins when the observation's unit matches the
// alternate's unit but not the outer one, or when the outer expression did
// not parse at all.
func (m *RangeMatcher) selectPredicate(expr *rangeexpr.Expr, unit string) *rangeexpr.Expr {
	alt := expr.Alternate
	if alt == nil {
		return expr
	}
	if expr.IsUnknown() {
		return alt
	}
	obsUnit := catalog.FoldUnit(unit)
	if obsUnit != "" && alt.Unit != "" &&
		catalog.FoldUnit(alt.Unit) == obsUnit &&
		catalog.FoldUnit(expr.Unit) != obsUnit {
		return alt
	}
	return expr
}

func displayRange(text string) string {
	if text == "" {
		return "N/A"
	}
	return text
}
