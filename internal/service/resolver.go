package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/biomarker-recon-server/internal/domain"
)

// DefaultFuzzyThreshold is the minimum normalized name similarity for a
// low-confidence registry match.
const DefaultFuzzyThreshold = 0.80

// IdentityResolver matches consolidated patient profiles against the client
// registry. Registry calls go through a circuit breaker so a degraded
// registry fails fast instead of stalling every reconciliation run.
type IdentityResolver struct {
	logger         *logrus.Logger
	registry       domain.ClientRegistry
	breaker        *gobreaker.CircuitBreaker
	fuzzyThreshold float64
}

// NewIdentityResolver creates an identity resolver over the given registry.
func NewIdentityResolver(logger *logrus.Logger, registry domain.ClientRegistry, fuzzyThreshold float64) *IdentityResolver {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "client-registry",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return &IdentityResolver{
		logger:         logger,
		registry:       registry,
		breaker:        breaker,
		fuzzyThreshold: fuzzyThreshold,
	}
}

// Resolve searches the registry for the best candidate matching the profile.
// A high-confidence match is capped at medium when the profile carries an
// identity conflict from consolidation. When no candidate scores, the result
// suggests creating a new client record.
func (r *IdentityResolver) Resolve(ctx context.Context, profile domain.CanonicalPatientProfile) (domain.MatchResult, error) {
	noMatch := domain.MatchResult{
		Matched:         false,
		Confidence:      domain.LOW,
		SuggestedAction: domain.CREATE_NEW,
	}
	if strings.TrimSpace(profile.Name) == "" {
		noMatch.Explanation = "no patient name extracted from any document"
		return noMatch, nil
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.registry.FindCandidates(ctx, profile.Name, profile.DateOfBirth)
	})
	if err != nil {
		return noMatch, fmt.Errorf("searching client registry: %w", err)
	}
	candidates := res.([]domain.ClientRecord)

	best := noMatch
	bestRank := -1
	for _, candidate := range candidates {
		confidence, explanation, ok := ScoreCandidate(profile, candidate, r.fuzzyThreshold)
		if !ok {
			continue
		}
		if rank := confidenceRank(confidence); rank > bestRank {
			bestRank = rank
			best = domain.MatchResult{
				Matched:         true,
				ClientID:        candidate.ID,
				Confidence:      confidence,
				SuggestedAction: domain.USE_EXISTING,
				Explanation:     explanation,
			}
		}
	}

	if !best.Matched {
		best.Explanation = "no registry candidate matched the patient profile"
		r.logger.WithField("patient", profile.Name).Info("No client registry match")
		return best, nil
	}

	if best.Confidence == domain.HIGH && profile.HasIdentityConflict() {
		best.Confidence = domain.MEDIUM
		best.Explanation += "; identity fields disagreed across source documents"
	}

	r.logger.WithFields(logrus.Fields{
		"patient":    profile.Name,
		"client_id":  best.ClientID,
		"confidence": best.Confidence,
	}).Info("Resolved patient against client registry")
	return best, nil
}

// ScoreCandidate scores one registry candidate against the profile. It is a
// pure function over its inputs.
func ScoreCandidate(profile domain.CanonicalPatientProfile, candidate domain.ClientRecord, fuzzyThreshold float64) (domain.ConfidenceLevel, string, bool) {
	exact := namesEqual(profile.Name, candidate.Name)
	profileDOB := profile.DateOfBirth
	candidateDOB := candidate.DateOfBirth

	switch {
	case exact && profileDOB != nil && candidateDOB != nil && sameDate(*profileDOB, *candidateDOB):
		return domain.HIGH, "exact name and date of birth match", true
	case exact && (profileDOB == nil || candidateDOB == nil):
		return domain.MEDIUM, "exact name match with date of birth missing on one side; confirm before use", true
	case exact && transposedDate(*profileDOB, *candidateDOB):
		return domain.MEDIUM, "exact name match with likely transposed date of birth; confirm before use", true
	case exact:
		return domain.LOW, "name matches but date of birth conflicts", true
	}

	similarity := nameSimilarity(profile.Name, candidate.Name)
	if similarity >= fuzzyThreshold {
		return domain.LOW, fmt.Sprintf("name similarity %.2f with no date of birth corroboration", similarity), true
	}
	return "", "", false
}

func confidenceRank(level domain.ConfidenceLevel) int {
	switch level {
	case domain.HIGH:
		return 3
	case domain.MEDIUM:
		return 2
	case domain.LOW:
		return 1
	}
	return 0
}

// namesEqual compares names ignoring case, surrounding whitespace, comma
// ordering ("Smith, John" vs "John Smith") and token order.
func namesEqual(a, b string) bool {
	ta := nameTokens(a)
	tb := nameTokens(b)
	if len(ta) == 0 || len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

func nameTokens(name string) []string {
	cleaned := strings.ToLower(strings.ReplaceAll(name, ",", " "))
	tokens := strings.Fields(cleaned)
	sort.Strings(tokens)
	return tokens
}

// nameSimilarity is the normalized Levenshtein similarity over the folded
// names, in [0, 1].
func nameSimilarity(a, b string) float64 {
	fa := strings.Join(nameTokens(a), " ")
	fb := strings.Join(nameTokens(b), " ")
	if fa == "" || fb == "" {
		return 0
	}
	longest := len(fa)
	if len(fb) > longest {
		longest = len(fb)
	}
	return 1 - float64(levenshtein(fa, fb))/float64(longest)
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// transposedDate reports whether two dates differ only by a day/month swap
// or by a single year while day and month agree. Both are common data entry
// mistakes.
func transposedDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay == by && int(am) == bd && ad == int(bm) && int(am) != ad {
		return true
	}
	if am == bm && ad == bd && ay != by && absInt(ay-by) == 1 {
		return true
	}
	return false
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
