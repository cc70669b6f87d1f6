package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

// InteractionEngine detects pairwise drug interactions. Curated store
// records take precedence; pairs without one are tested against the
// class-based rule tables.
type InteractionEngine struct {
	logger     *logrus.Logger
	store      domain.KnowledgeStore
	classifier *ClassClassifier
}

// NewInteractionEngine creates a new interaction engine. A nil classifier
// uses the interaction classes with substring matching.
func NewInteractionEngine(logger *logrus.Logger, store domain.KnowledgeStore, classifier *ClassClassifier) *InteractionEngine {
	if classifier == nil {
		classifier = NewInteractionClassifier(nil)
	}
	return &InteractionEngine{
		logger:     logger,
		store:      store,
		classifier: classifier,
	}
}

// CheckInteractions evaluates every unordered pair of names once. Names are
// trimmed, blanks dropped and case-insensitive repeats collapsed before
// pairing. Findings are ordered by descending severity weight, ties in pair
// order.
func (e *InteractionEngine) CheckInteractions(ctx context.Context, names []string) []domain.InteractionFinding {
	started := time.Now()
	names = uniqueNames(names)

	var findings []domain.InteractionFinding
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if finding, ok := e.checkPair(ctx, names[i], names[j]); ok {
				findings = append(findings, finding)
				metrics.InteractionFindingsTotal.WithLabelValues(string(finding.Severity), string(finding.Source)).Inc()
			}
		}
	}

	sort.SliceStable(findings, func(a, b int) bool {
		return findings[a].Severity.Weight() > findings[b].Severity.Weight()
	})

	e.logger.WithFields(logrus.Fields{
		"drugs":    len(names),
		"pairs":    len(names) * (len(names) - 1) / 2,
		"findings": len(findings),
	}).Debug("Completed interaction check")
	metrics.ObserveEvaluation("check_interactions", metrics.OutcomeOK, started)

	return findings
}

func (e *InteractionEngine) checkPair(ctx context.Context, a, b string) (domain.InteractionFinding, bool) {
	stored, err := e.store.InteractionLookup(ctx, a, b)
	switch {
	case err == nil && stored != nil:
		finding := *stored
		finding.DrugA, finding.DrugB = a, b
		finding.Source = domain.SourceStore
		return finding, true
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		e.logger.WithError(err).WithFields(logrus.Fields{
			"drug_a": a,
			"drug_b": b,
		}).Warn("Interaction lookup failed, using class patterns")
	}

	return e.patternFinding(a, b)
}

func (e *InteractionEngine) patternFinding(a, b string) (domain.InteractionFinding, bool) {
	classesA := e.classifier.Classify(a)
	classesB := e.classifier.Classify(b)
	if len(classesA) == 0 || len(classesB) == 0 {
		return domain.InteractionFinding{}, false
	}

	if rule, ok := firstFiring(highRiskRules, classesA, classesB); ok {
		return synthesizeFinding(a, b, domain.SeverityHigh, rule), true
	}
	if rule, ok := firstFiring(mediumRiskRules, classesA, classesB); ok {
		return synthesizeFinding(a, b, domain.SeverityModerate, rule), true
	}
	return domain.InteractionFinding{}, false
}

func firstFiring(rules []classRule, classesA, classesB []string) (classRule, bool) {
	for _, rule := range rules {
		if (intersects(classesA, rule.A) && intersects(classesB, rule.B)) ||
			(intersects(classesA, rule.B) && intersects(classesB, rule.A)) {
			return rule, true
		}
	}
	return classRule{}, false
}

func synthesizeFinding(a, b string, severity domain.Severity, rule classRule) domain.InteractionFinding {
	return domain.InteractionFinding{
		DrugA:                a,
		DrugB:                b,
		Severity:             severity,
		Mechanism:            fmt.Sprintf("Interaction between %s and %s", strings.Join(rule.A, "/"), strings.Join(rule.B, "/")),
		Description:          describeRule(rule),
		ClinicalSignificance: fmt.Sprintf("%s clinical significance", severity),
		Recommendation:       recommendationFor(severity),
		MonitoringRequired:   severity == domain.SeverityHigh || severity == domain.SeverityModerate,
		Source:               domain.SourcePattern,
	}
}

func describeRule(rule classRule) string {
	for _, d := range classPairDescriptions {
		if (slices.Contains(rule.A, d.a) && slices.Contains(rule.B, d.b)) ||
			(slices.Contains(rule.A, d.b) && slices.Contains(rule.B, d.a)) {
			return d.text
		}
	}
	return defaultPairDescription
}

func recommendationFor(severity domain.Severity) string {
	if text, ok := severityRecommendations[severity]; ok {
		return text
	}
	return severityRecommendations[domain.SeverityModerate]
}

// AssessOverallRisk folds a finding list into a score, level and advice.
// An empty list is the best case: score 100, level Low.
func AssessOverallRisk(findings []domain.InteractionFinding) domain.RiskAssessment {
	if len(findings) == 0 {
		return domain.RiskAssessment{
			Score:           100,
			Level:           domain.RiskLow,
			Summary:         "No significant interactions detected",
			Recommendations: []string{"Continue monitoring patient as standard practice"},
		}
	}

	assessment := domain.RiskAssessment{TotalCount: len(findings)}
	score := 100
	for _, f := range findings {
		score -= riskPenalty.For(f.Severity)
		switch f.Severity {
		case domain.SeverityHigh:
			assessment.HighCount++
		case domain.SeverityModerate:
			assessment.ModerateCount++
		case domain.SeverityLow:
			assessment.LowCount++
		}
	}
	if score < 0 {
		score = 0
	}
	assessment.Score = score
	assessment.Level = domain.RiskLevelFor(score)

	var parts []string
	if assessment.HighCount > 0 {
		parts = append(parts, fmt.Sprintf("%d high-risk interaction(s)", assessment.HighCount))
	}
	if assessment.ModerateCount > 0 {
		parts = append(parts, fmt.Sprintf("%d moderate-risk interaction(s)", assessment.ModerateCount))
	}
	if assessment.LowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d low-risk interaction(s)", assessment.LowCount))
	}
	if len(parts) > 0 {
		assessment.Summary = "Found " + strings.Join(parts, ", ")
	} else {
		assessment.Summary = "Minimal interactions"
	}

	assessment.Recommendations = []string{}
	if assessment.HighCount > 0 {
		assessment.Recommendations = append(assessment.Recommendations,
			"Consider alternative medications for high-risk interactions",
			"Implement intensive monitoring protocols",
		)
	}
	if assessment.ModerateCount > 0 {
		assessment.Recommendations = append(assessment.Recommendations,
			"Monitor patient for interaction-related adverse effects")
	}
	if assessment.Level == domain.RiskHigh || assessment.Level == domain.RiskCritical {
		assessment.Recommendations = append(assessment.Recommendations,
			"Consult with pharmacist or specialist")
	}

	return assessment
}

// BuildMonitoringPlan derives lab and clinical monitoring from the mechanism
// text of each finding. Any High finding makes the plan Intensive.
func BuildMonitoringPlan(findings []domain.InteractionFinding) domain.MonitoringPlan {
	plan := domain.MonitoringPlan{
		LabMonitoring:      []string{},
		ClinicalMonitoring: []string{},
		Frequency:          "Standard",
		Duration:           "Throughout treatment",
	}

	for _, f := range findings {
		mechanism := strings.ToLower(f.Mechanism)
		if strings.Contains(mechanism, "anticoagulant") {
			plan.LabMonitoring = appendUnique(plan.LabMonitoring, "PT/INR monitoring")
			plan.ClinicalMonitoring = appendUnique(plan.ClinicalMonitoring, "Bleeding assessment")
		}
		if strings.Contains(mechanism, "statin") {
			plan.LabMonitoring = appendUnique(plan.LabMonitoring, "Liver function tests")
			plan.ClinicalMonitoring = appendUnique(plan.ClinicalMonitoring, "Muscle pain assessment")
		}
		if f.Severity == domain.SeverityHigh {
			plan.Frequency = "Intensive"
		}
	}

	return plan
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

func intersects(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
