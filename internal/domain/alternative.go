package domain

import (
	"fmt"
	"strings"
)

// Reason is why the caller wants a substitute for a drug.
type Reason string

const (
	ReasonDrugInteraction Reason = "Drug Interaction"
	ReasonAllergy         Reason = "Allergy"
	ReasonSideEffects     Reason = "Side Effects"
	ReasonCost            Reason = "Cost"
)

var reasons = []Reason{ReasonDrugInteraction, ReasonAllergy, ReasonSideEffects, ReasonCost}

// ParseReason matches s against the known reasons ignoring case and
// surrounding space. An empty string defaults to ReasonDrugInteraction.
func ParseReason(s string) (Reason, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ReasonDrugInteraction, nil
	}
	for _, r := range reasons {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", NewValidationError("reason", fmt.Sprintf("Unknown reason %q", s), s)
}

// AlternativeCandidate is one ranked substitute.
type AlternativeCandidate struct {
	Name                  string   `json:"name"`
	SimilarityScore       float64  `json:"similarity_score"`
	SafetyRating          int      `json:"safety_rating"`
	Mechanism             string   `json:"mechanism"`
	Advantages            []string `json:"advantages"`
	Considerations        []string `json:"considerations"`
	CostComparison        string   `json:"cost_comparison"`
	SuitabilityScore      int      `json:"suitability_score"`
	ContraindicationCount int      `json:"contraindications"`
}

// AlternativesResult carries the ranked candidates and the partial-result
// signals: how many candidates were skipped and whether the similarity-search
// fallback produced the list.
type AlternativesResult struct {
	Drug       string                 `json:"drug"`
	Candidates []AlternativeCandidate `json:"alternatives"`
	Skipped    int                    `json:"skipped"`
	Fallback   bool                   `json:"fallback"`
}

// TherapeuticClass is a static group of interchangeable drugs.
type TherapeuticClass struct {
	ID         string   `json:"id"`
	Members    []string `json:"members"`
	Mechanism  string   `json:"mechanism"`
	Indication string   `json:"indication"`
}
