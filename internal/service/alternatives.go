package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

const (
	maxAlternatives         = 10
	maxFallbackAlternatives = 5
	crossClassThreshold     = 5
	fallbackSearchLimit     = 20
	minSuitability          = 40
	baseSimilarity          = 0.8
	mechanismBonus          = 0.1
	baseSafetyRating        = 4.0
)

// AlternativeEngine ranks substitutes for a problematic drug.
type AlternativeEngine struct {
	logger *logrus.Logger
	store  domain.KnowledgeStore
	groups *ClassClassifier
}

// NewAlternativeEngine creates a new alternative engine. A nil classifier
// uses the therapeutic groups with substring matching.
func NewAlternativeEngine(logger *logrus.Logger, store domain.KnowledgeStore, groups *ClassClassifier) *AlternativeEngine {
	if groups == nil {
		groups = NewTherapeuticClassifier(nil)
	}
	return &AlternativeEngine{
		logger: logger,
		store:  store,
		groups: groups,
	}
}

// FindAlternatives returns at most ten candidates ranked by suitability then
// safety rating. Candidates that could not be evaluated are counted in
// Skipped. When the drug itself is unknown the result comes from a name
// search and Fallback is set.
func (e *AlternativeEngine) FindAlternatives(ctx context.Context, drugName string, patient *domain.PatientProfile, reason domain.Reason, therapeuticClass string) (domain.AlternativesResult, error) {
	drugName = strings.TrimSpace(drugName)
	if drugName == "" {
		return domain.AlternativesResult{}, domain.NewValidationError("drug", "Drug name is required", drugName)
	}
	if patient == nil {
		return domain.AlternativesResult{}, domain.NewValidationError("patient", "Patient profile is required", nil)
	}

	started := time.Now()
	scope := newLookupScope(e.store)
	result := domain.AlternativesResult{Drug: drugName, Candidates: []domain.AlternativeCandidate{}}

	drug, err := scope.Lookup(ctx, drugName)
	if err != nil {
		e.logger.WithError(err).WithField("drug", drugName).Debug("Drug not available, falling back to similarity search")
		e.similarityFallback(ctx, scope, drugName, &result)
		metrics.ObserveEvaluation("find_alternatives", metrics.OutcomeFallback, started)
		return result, nil
	}

	eval := &evaluation{
		engine:  e,
		scope:   scope,
		patient: patient,
		reason:  reason,
		result:  &result,
	}

	// Within-class pass.
	if group, ok := e.groups.FirstClass(drugName); ok {
		for _, member := range group.Members {
			if strings.EqualFold(member, drugName) || drug.Matches(member) {
				continue
			}
			eval.lookupAndEvaluate(ctx, member, &group)
		}
	}

	// Cross-class pass.
	if len(result.Candidates) < crossClassThreshold {
		for _, groupID := range crossClassAlternatives[indicationFor(drug.TherapeuticClass)] {
			group, ok := e.groups.Class(groupID)
			if !ok || len(group.Members) == 0 || drug.Matches(group.Members[0]) {
				continue
			}
			eval.lookupAndEvaluate(ctx, group.Members[0], &group)
		}
	}

	// Store pass.
	summaries, err := e.store.TherapeuticAlternatives(ctx, drugName, therapeuticClass)
	if err != nil {
		e.logger.WithError(err).WithField("drug", drugName).Warn("Therapeutic alternative query failed")
		result.Skipped++
	}
	for _, summary := range summaries {
		if strings.EqualFold(summary.Name, drugName) {
			continue
		}
		alt, err := scope.Lookup(ctx, summary.Name)
		switch {
		case err == nil:
			eval.evaluate(ctx, alt, nil)
		case errors.Is(err, domain.ErrNotFound):
			result.Candidates = append(result.Candidates, genericCandidate(summary))
		default:
			eval.skip(summary.Name, err)
		}
	}

	result.Candidates = rankCandidates(result.Candidates, maxAlternatives)

	e.logger.WithFields(logrus.Fields{
		"drug":       drugName,
		"reason":     reason,
		"candidates": len(result.Candidates),
		"skipped":    result.Skipped,
	}).Info("Completed alternative search")
	metrics.ObserveEvaluation("find_alternatives", metrics.OutcomeOK, started)

	return result, nil
}

func (e *AlternativeEngine) similarityFallback(ctx context.Context, scope *lookupScope, drugName string, result *domain.AlternativesResult) {
	result.Fallback = true

	summaries, err := e.store.Search(ctx, drugName, fallbackSearchLimit)
	if err != nil {
		e.logger.WithError(err).WithField("drug", drugName).Warn("Similarity search failed")
		result.Skipped++
		return
	}

	for _, summary := range summaries {
		if len(result.Candidates) >= maxFallbackAlternatives {
			break
		}
		if strings.EqualFold(summary.Name, drugName) {
			continue
		}
		if _, err := scope.Lookup(ctx, summary.Name); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				result.Skipped++
			}
			continue
		}
		result.Candidates = append(result.Candidates, domain.AlternativeCandidate{
			Name:             summary.Name,
			SimilarityScore:  0.7,
			SafetyRating:     4,
			Mechanism:        orUnspecified(summary.Mechanism),
			Advantages:       []string{"Available in database", "Well-documented profile"},
			Considerations:   []string{"Verify therapeutic equivalence"},
			CostComparison:   "Similar",
			SuitabilityScore: 70,
		})
	}
	result.Candidates = dedupeCandidates(result.Candidates)
}

// evaluation carries the per-call state shared by the three passes.
type evaluation struct {
	engine  *AlternativeEngine
	scope   *lookupScope
	patient *domain.PatientProfile
	reason  domain.Reason
	result  *domain.AlternativesResult
}

func (ev *evaluation) lookupAndEvaluate(ctx context.Context, name string, group *domain.TherapeuticClass) {
	alt, err := ev.scope.Lookup(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			ev.skip(name, err)
		}
		return
	}
	ev.evaluate(ctx, alt, group)
}

func (ev *evaluation) evaluate(ctx context.Context, alt *domain.DrugRecord, group *domain.TherapeuticClass) {
	candidate, ok, err := ev.engine.evaluateCandidate(ctx, alt, ev.patient, ev.reason, group)
	if err != nil {
		ev.skip(alt.Name, err)
		return
	}
	if ok {
		ev.result.Candidates = append(ev.result.Candidates, candidate)
	}
}

func (ev *evaluation) skip(name string, err error) {
	ev.result.Skipped++
	metrics.AlternativesSkippedTotal.Inc()
	ev.engine.logger.WithError(err).WithField("candidate", name).Warn("Skipping alternative candidate")
}

// evaluateCandidate scores one candidate for the patient. ok is false when
// the candidate's suitability falls below the acceptance threshold.
func (e *AlternativeEngine) evaluateCandidate(ctx context.Context, alt *domain.DrugRecord, patient *domain.PatientProfile, reason domain.Reason, group *domain.TherapeuticClass) (domain.AlternativeCandidate, bool, error) {
	contraindications, err := e.store.ContraindicationsFor(ctx, alt.Name, patient.Conditions, patient.Allergies)
	if err != nil {
		return domain.AlternativeCandidate{}, false, fmt.Errorf("contraindications for %s: %w", alt.Name, err)
	}

	suitability := 100
	for _, ci := range contraindications {
		suitability -= suitabilityPenalty.For(ci.Severity)
	}
	suitability = clamp(suitability, 0, 100)
	if suitability < minSuitability {
		return domain.AlternativeCandidate{}, false, nil
	}

	return domain.AlternativeCandidate{
		Name:                  alt.Name,
		SimilarityScore:       similarity(alt, group),
		SafetyRating:          safetyRating(alt, patient),
		Mechanism:             orUnspecified(alt.Mechanism),
		Advantages:            advantages(alt, patient, reason),
		Considerations:        considerations(alt, patient),
		CostComparison:        costComparison(alt.CostTier),
		SuitabilityScore:      suitability,
		ContraindicationCount: len(contraindications),
	}, true, nil
}

func similarity(alt *domain.DrugRecord, group *domain.TherapeuticClass) float64 {
	score := baseSimilarity
	if group != nil && group.Mechanism != "" &&
		strings.Contains(strings.ToLower(alt.Mechanism), strings.ToLower(group.Mechanism)) {
		score += mechanismBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

func safetyRating(alt *domain.DrugRecord, patient *domain.PatientProfile) int {
	rating := baseSafetyRating
	if alt.HasSeriousAdverseEffects() {
		rating--
	}
	switch strings.ToUpper(strings.TrimSpace(domain.Value(alt.PregnancyCategory))) {
	case "X", "D":
		rating--
	}
	if (patient.Age >= 65 && !alt.HasGeriatricNote()) || (patient.Age < 18 && !alt.HasPediatricNote()) {
		rating -= 0.5
	}
	return clamp(int(rating), 1, 5)
}

func advantages(alt *domain.DrugRecord, patient *domain.PatientProfile, reason domain.Reason) []string {
	out := []string{}
	if text, ok := reasonAdvantages[reason]; ok {
		out = append(out, text)
	}
	switch {
	case patient.Age >= 65 && alt.HasGeriatricNote():
		out = append(out, "Has specific geriatric dosing guidelines")
	case patient.Age < 18 && alt.HasPediatricNote():
		out = append(out, "Has established pediatric dosing")
	}
	if hl := domain.Value(alt.HalfLife); hl != "" {
		out = append(out, "Half-life: "+hl)
	}
	if ba := domain.Value(alt.Bioavailability); ba != "" {
		out = append(out, "Bioavailability: "+ba)
	}
	return out
}

func considerations(alt *domain.DrugRecord, patient *domain.PatientProfile) []string {
	out := []string{}
	switch {
	case patient.Age >= 65 && !alt.HasGeriatricNote():
		out = append(out, "Limited geriatric data available")
	case patient.Age < 18 && !alt.HasPediatricNote():
		out = append(out, "Pediatric use requires careful consideration")
	}
	for _, condition := range patient.Conditions {
		c := strings.ToLower(condition)
		switch {
		case strings.Contains(c, "kidney") && alt.HasRenalAdjustment():
			out = append(out, "Requires dose adjustment for renal impairment")
		case strings.Contains(c, "liver") && alt.HasHepaticAdjustment():
			out = append(out, "Requires dose adjustment for hepatic impairment")
		}
	}
	return out
}

func costComparison(tier string) string {
	if text, ok := costComparisons[strings.ToLower(strings.TrimSpace(tier))]; ok {
		return text
	}
	return "Similar cost"
}

func genericCandidate(summary domain.DrugSummary) domain.AlternativeCandidate {
	cost := summary.CostTier
	if cost == "" {
		cost = "Similar"
	}
	return domain.AlternativeCandidate{
		Name:             summary.Name,
		SimilarityScore:  baseSimilarity,
		SafetyRating:     4,
		Mechanism:        orUnspecified(summary.Mechanism),
		Advantages:       []string{"Therapeutically equivalent"},
		Considerations:   []string{"Verify dosing equivalence"},
		CostComparison:   cost,
		SuitabilityScore: 75,
	}
}

// indicationFor maps free-text therapeutic class to a coarse indication.
func indicationFor(therapeuticClass string) string {
	for _, k := range indicationKeywords {
		if containsFold(therapeuticClass, k.keyword) {
			return k.indication
		}
	}
	return ""
}

// rankCandidates removes repeated names, keeping the first, then orders by
// suitability and safety rating, both descending, and truncates to limit.
func rankCandidates(candidates []domain.AlternativeCandidate, limit int) []domain.AlternativeCandidate {
	out := dedupeCandidates(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SuitabilityScore != out[j].SuitabilityScore {
			return out[i].SuitabilityScore > out[j].SuitabilityScore
		}
		return out[i].SafetyRating > out[j].SafetyRating
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dedupeCandidates(candidates []domain.AlternativeCandidate) []domain.AlternativeCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.AlternativeCandidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
