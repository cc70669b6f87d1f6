package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
)

// Engines groups the four evaluation engines over one knowledge store. It
// holds no per-request state and is safe for concurrent use.
type Engines struct {
	Interactions *InteractionEngine
	Dosage       *DosagePipeline
	Alternatives *AlternativeEngine
	Analyzer     *PrescriptionAnalyzer
	Store        domain.KnowledgeStore
}

// NewEngines wires the engines with the default substring name matcher.
func NewEngines(logger *logrus.Logger, store domain.KnowledgeStore) *Engines {
	return NewEnginesWithMatcher(logger, store, SubstringMatcher{})
}

// NewEnginesWithMatcher wires the engines with a custom class-membership matcher.
func NewEnginesWithMatcher(logger *logrus.Logger, store domain.KnowledgeStore, matcher domain.NameMatcher) *Engines {
	interactions := NewInteractionEngine(logger, store, NewInteractionClassifier(matcher))
	pipeline := NewDosagePipeline(logger, store)

	return &Engines{
		Interactions: interactions,
		Dosage:       pipeline,
		Alternatives: NewAlternativeEngine(logger, store, NewTherapeuticClassifier(matcher)),
		Analyzer:     NewPrescriptionAnalyzer(logger, store, interactions, pipeline),
		Store:        store,
	}
}

// InteractionReport is the combined interaction check result served by the
// REST, MCP and CLI surfaces.
type InteractionReport struct {
	Drugs      []string                    `json:"drugs"`
	Findings   []domain.InteractionFinding `json:"interactions"`
	Risk       domain.RiskAssessment       `json:"risk_assessment"`
	Monitoring domain.MonitoringPlan       `json:"monitoring_plan"`
}

// CheckInteractions runs the interaction engine and aggregates its findings
// into a risk assessment and monitoring plan.
func (e *Engines) CheckInteractions(ctx context.Context, names []string) InteractionReport {
	findings := e.Interactions.CheckInteractions(ctx, names)
	if findings == nil {
		findings = []domain.InteractionFinding{}
	}
	return InteractionReport{
		Drugs:      uniqueNames(names),
		Findings:   findings,
		Risk:       AssessOverallRisk(findings),
		Monitoring: BuildMonitoringPlan(findings),
	}
}
