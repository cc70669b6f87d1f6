package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
	"github.com/rx-safety-engine/pkg/dosage"
)

const (
	highInteractionSafetyPenalty = 10
	noRecommendationSafety       = 50
)

// PrescriptionAnalyzer runs the interaction and dosage engines over a batch
// of extracted medications.
type PrescriptionAnalyzer struct {
	logger       *logrus.Logger
	store        domain.KnowledgeStore
	interactions *InteractionEngine
	dosage       *DosagePipeline
}

// NewPrescriptionAnalyzer creates a new prescription analyzer
func NewPrescriptionAnalyzer(logger *logrus.Logger, store domain.KnowledgeStore, interactions *InteractionEngine, pipeline *DosagePipeline) *PrescriptionAnalyzer {
	return &PrescriptionAnalyzer{
		logger:       logger,
		store:        store,
		interactions: interactions,
		dosage:       pipeline,
	}
}

// Analyze checks every pair of medications, recommends a dose for each and
// aggregates an overall safety score. A drug without a recommendation is
// reported in its profile and does not stop the batch.
func (a *PrescriptionAnalyzer) Analyze(ctx context.Context, meds []domain.MedicationEntry, patient *domain.PatientProfile) (*domain.PrescriptionAnalysis, error) {
	if patient == nil {
		return nil, domain.NewValidationError("patient", "Patient profile is required", nil)
	}
	started := time.Now()

	names := make([]string, 0, len(meds))
	for _, m := range meds {
		if strings.TrimSpace(m.Name) != "" {
			names = append(names, m.Name)
		}
	}

	findings := a.interactions.CheckInteractions(ctx, names)
	analysis := &domain.PrescriptionAnalysis{
		TotalDrugs:   len(meds),
		Interactions: findings,
		Risk:         AssessOverallRisk(findings),
		Monitoring:   BuildMonitoringPlan(findings),
		DrugProfiles: make([]domain.DrugProfile, 0, len(meds)),
	}
	if analysis.Interactions == nil {
		analysis.Interactions = []domain.InteractionFinding{}
	}

	var (
		scoreSum      int
		recommended   int
		inappropriate int
	)
	for _, m := range meds {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		profile := domain.DrugProfile{Name: m.Name, ExtractedDosage: m.Dosage}

		outcome, err := a.dosage.Recommend(ctx, m.Name, patient, defaultIndication)
		if err != nil {
			return nil, fmt.Errorf("failed to recommend dosage for %s: %w", m.Name, err)
		}
		if outcome.Available() {
			profile.Recommendation = outcome.Recommendation
			profile.DosageMatches = dosage.Equivalent(m.Dosage, outcome.Recommendation.Adjusted)
			scoreSum += outcome.Recommendation.SafetyScore
			recommended++
			if !profile.DosageMatches {
				inappropriate++
			}
		} else {
			profile.Unavailable = outcome.Unavailable
		}
		analysis.DrugProfiles = append(analysis.DrugProfiles, profile)
	}

	analysis.OverallSafety = noRecommendationSafety
	if recommended > 0 {
		overall := float64(scoreSum)/float64(recommended) - float64(analysis.Risk.HighCount*highInteractionSafetyPenalty)
		analysis.OverallSafety = clampFloat(overall, 0, 100)
	}

	analysis.DrugMonitoring = a.drugMonitoring(ctx, names)
	analysis.Recommendations = analysisMessages(len(findings), inappropriate, analysis.OverallSafety)

	a.logger.WithFields(logrus.Fields{
		"drugs":          len(meds),
		"interactions":   len(findings),
		"recommended":    recommended,
		"overall_safety": analysis.OverallSafety,
	}).Info("Completed prescription analysis")
	metrics.ObserveEvaluation("analyze_prescription", metrics.OutcomeOK, started)

	return analysis, nil
}

func (a *PrescriptionAnalyzer) drugMonitoring(ctx context.Context, names []string) map[string]domain.MonitoringRequirement {
	source, ok := a.store.(domain.MonitoringSource)
	if !ok || len(names) == 0 {
		return nil
	}
	reqs, err := source.MonitoringRequirements(ctx, names)
	if err != nil {
		a.logger.WithError(err).Warn("Monitoring requirements unavailable")
		return nil
	}
	return reqs
}

func analysisMessages(interactions, inappropriate int, overall float64) []domain.AnalysisMessage {
	var msgs []domain.AnalysisMessage
	if interactions > 0 {
		msgs = append(msgs, domain.AnalysisMessage{
			Type:    "warning",
			Message: fmt.Sprintf("Found %d drug interactions requiring attention", interactions),
		})
	}
	if inappropriate > 0 {
		msgs = append(msgs, domain.AnalysisMessage{
			Type:    "warning",
			Message: fmt.Sprintf("%d drugs have potentially inappropriate dosages", inappropriate),
		})
	}

	switch {
	case overall >= 80:
		msgs = append(msgs, domain.AnalysisMessage{Type: "success", Message: "Overall prescription safety profile is good"})
	case overall >= 60:
		msgs = append(msgs, domain.AnalysisMessage{Type: "info", Message: "Prescription requires monitoring but is generally acceptable"})
	default:
		msgs = append(msgs, domain.AnalysisMessage{Type: "warning", Message: "Prescription has significant safety concerns requiring review"})
	}
	return msgs
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
