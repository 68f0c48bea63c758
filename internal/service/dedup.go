package service

import (
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/domain"
)

// Deduplicator collapses repeated observations of the same biomarker across
// documents into one canonical observation per biomarker.
type Deduplicator struct {
	logger *logrus.Logger
}

// NewDeduplicator creates a biomarker deduplicator.
func NewDeduplicator(logger *logrus.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Deduplicate folds the input left to right, keeping one observation per
// canonical biomarker name. A numeric value replaces an N/A one; between two
// numeric values the strictly later test date wins; otherwise the first-seen
// observation is kept. Provenance accumulates every contributing document.
// Output order is the order in which each biomarker was first seen.
func (d *Deduplicator) Deduplicate(observations []NormalizedObservation) []domain.CanonicalObservation {
	index := make(map[string]int, len(observations))
	result := make([]domain.CanonicalObservation, 0, len(observations))

	for _, obs := range observations {
		key := catalog.FoldName(obs.CanonicalName)
		if key == "" {
			continue
		}

		idx, seen := index[key]
		if !seen {
			index[key] = len(result)
			result = append(result, domain.CanonicalObservation{
				CanonicalName:     obs.CanonicalName,
				Value:             obs.Value,
				Unit:              obs.Unit,
				TestDate:          obs.TestDate,
				Provenance:        []string{obs.SourceDocumentID},
				ConversionApplied: obs.ConversionApplied,
			})
			continue
		}

		current := &result[idx]
		appendProvenance(current, obs.SourceDocumentID)

		replace, reason := shouldReplace(current, obs)
		if !replace {
			continue
		}
		d.logger.WithFields(logrus.Fields{
			"biomarker": current.CanonicalName,
			"document":  obs.SourceDocumentID,
			"reason":    reason,
		}).Debug("Replacing duplicate observation")
		current.Value = obs.Value
		current.Unit = obs.Unit
		current.TestDate = obs.TestDate
		current.ConversionApplied = obs.ConversionApplied
	}

	return result
}

func shouldReplace(current *domain.CanonicalObservation, candidate NormalizedObservation) (bool, string) {
	if !candidate.Value.Valid {
		return false, ""
	}
	if !current.Value.Valid {
		return true, "numeric value replaces N/A"
	}
	if current.TestDate != nil && candidate.TestDate != nil && candidate.TestDate.After(*current.TestDate) {
		return true, "later test date"
	}
	return false, ""
}

func appendProvenance(obs *domain.CanonicalObservation, documentID string) {
	for _, id := range obs.Provenance {
		if id == documentID {
			return
		}
	}
	obs.Provenance = append(obs.Provenance, documentID)
}
