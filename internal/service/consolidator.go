package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/domain"
)

// DocumentConsolidator merges per-document patient profile fragments into a
// single canonical profile, recording every cross-document disagreement.
type DocumentConsolidator struct {
	logger *logrus.Logger
}

// NewDocumentConsolidator creates a document consolidator.
func NewDocumentConsolidator(logger *logrus.Logger) *DocumentConsolidator {
	return &DocumentConsolidator{logger: logger}
}

// Consolidate merges fragments in input order. The first non-empty value of
// each field wins; later non-empty values that disagree are recorded as
// discrepancies but never overwrite the canonical value. Confidence is High
// with no discrepancies, Low when name or date of birth disagreed, Medium
// otherwise.
func (c *DocumentConsolidator) Consolidate(fragments []domain.PatientProfileFragment) domain.CanonicalPatientProfile {
	profile := domain.CanonicalPatientProfile{Discrepancies: []string{}}
	var nameDoc, genderDoc, dobDoc, testDateDoc string

	for _, frag := range fragments {
		if frag.Name != "" {
			if profile.Name == "" {
				profile.Name = frag.Name
				nameDoc = frag.SourceDocumentID
			} else if catalog.FoldName(frag.Name) != catalog.FoldName(profile.Name) {
				profile.Discrepancies = append(profile.Discrepancies, fieldDiscrepancy(
					domain.FieldName, nameDoc, profile.Name, frag.SourceDocumentID, frag.Name))
			}
		}

		if frag.DateOfBirth != nil {
			if profile.DateOfBirth == nil {
				profile.DateOfBirth = frag.DateOfBirth
				dobDoc = frag.SourceDocumentID
			} else if !sameDate(*profile.DateOfBirth, *frag.DateOfBirth) {
				profile.Discrepancies = append(profile.Discrepancies, fieldDiscrepancy(
					domain.FieldDateOfBirth, dobDoc, fmtDate(*profile.DateOfBirth), frag.SourceDocumentID, fmtDate(*frag.DateOfBirth)))
			}
		}

		// Fragments carry free-text gender; fold to the canonical enum
		// before comparing. Unrecognized values count as absent.
		if gender := domain.ParseGender(string(frag.Gender)); gender != "" {
			if profile.Gender == "" {
				profile.Gender = gender
				genderDoc = frag.SourceDocumentID
			} else if gender != profile.Gender {
				profile.Discrepancies = append(profile.Discrepancies, fieldDiscrepancy(
					domain.FieldGender, genderDoc, string(profile.Gender), frag.SourceDocumentID, string(gender)))
			}
		}

		if frag.TestDate != nil {
			if profile.TestDate == nil {
				profile.TestDate = frag.TestDate
				testDateDoc = frag.SourceDocumentID
			} else if !sameDate(*profile.TestDate, *frag.TestDate) {
				profile.Discrepancies = append(profile.Discrepancies, fieldDiscrepancy(
					domain.FieldTestDate, testDateDoc, fmtDate(*profile.TestDate), frag.SourceDocumentID, fmtDate(*frag.TestDate)))
			}
		}
	}

	switch {
	case len(profile.Discrepancies) == 0:
		profile.Confidence = domain.HIGH
	case profile.HasIdentityConflict():
		profile.Confidence = domain.LOW
	default:
		profile.Confidence = domain.MEDIUM
	}

	if len(profile.Discrepancies) > 0 {
		c.logger.WithFields(logrus.Fields{
			"patient":       profile.Name,
			"discrepancies": len(profile.Discrepancies),
			"confidence":    profile.Confidence,
		}).Warn("Profile fields disagree across documents")
	}

	return profile
}

func fieldDiscrepancy(field, firstDoc, firstValue, doc, value string) string {
	return fmt.Sprintf("%s: document %s has %q but document %s has %q", field, firstDoc, firstValue, doc, value)
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
