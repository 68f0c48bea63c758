package service

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/domain"
)

// NormalizedObservation is an observation after name resolution and unit
// conversion, ready for deduplication.
type NormalizedObservation struct {
	CanonicalName     string
	Resolved          bool
	Value             domain.Value
	Unit              string
	TestDate          *time.Time
	SourceDocumentID  string
	ConversionApplied bool
}

// UnitNormalizer resolves raw biomarker names against the benchmark catalog
// and converts observed values into each benchmark's canonical unit.
type UnitNormalizer struct {
	logger  *logrus.Logger
	catalog domain.BenchmarkCatalog
}

// NewUnitNormalizer creates a unit normalizer backed by the given catalog.
func NewUnitNormalizer(logger *logrus.Logger, cat domain.BenchmarkCatalog) *UnitNormalizer {
	return &UnitNormalizer{logger: logger, catalog: cat}
}

// Normalize resolves the observation's biomarker name and converts its value
// to the benchmark's canonical unit. It never fails: unresolvable names and
// units pass through unchanged, and non-numeric values stay N/A.
func (n *UnitNormalizer) Normalize(obs domain.RawObservation) NormalizedObservation {
	out := NormalizedObservation{
		Value:            domain.ParseValue(obs.ValueRaw),
		Unit:             strings.TrimSpace(obs.UnitRaw),
		TestDate:         obs.TestDate,
		SourceDocumentID: obs.SourceDocumentID,
	}

	entry, ok := n.catalog.Resolve(obs.BiomarkerNameRaw)
	if !ok {
		out.CanonicalName = strings.TrimSpace(obs.BiomarkerNameRaw)
		n.logger.WithFields(logrus.Fields{
			"biomarker": obs.BiomarkerNameRaw,
			"document":  obs.SourceDocumentID,
		}).Debug("Biomarker name not found in benchmark catalog")
		return out
	}

	out.CanonicalName = entry.CanonicalName
	out.Resolved = true

	obsUnit := catalog.FoldUnit(obs.UnitRaw)
	if obsUnit == "" || obsUnit == catalog.FoldUnit(entry.CanonicalUnit) {
		out.Unit = entry.CanonicalUnit
		return out
	}

	for alias, factor := range entry.UnitAliases {
		if catalog.FoldUnit(alias) != obsUnit {
			continue
		}
		out.Unit = entry.CanonicalUnit
		if out.Value.Valid {
			out.Value = domain.NumericValue(out.Value.Number * factor)
			out.ConversionApplied = true
			n.logger.WithFields(logrus.Fields{
				"biomarker": entry.CanonicalName,
				"from_unit": obs.UnitRaw,
				"to_unit":   entry.CanonicalUnit,
				"factor":    factor,
			}).Debug("Converted observation to canonical unit")
		}
		return out
	}

	n.logger.WithFields(logrus.Fields{
		"biomarker": entry.CanonicalName,
		"unit":      obs.UnitRaw,
		"document":  obs.SourceDocumentID,
	}).Warn("Unresolvable unit, passing value through unconverted")
	return out
}
