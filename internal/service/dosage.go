package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
	"github.com/rx-safety-engine/pkg/dosage"
)

const (
	defaultIndication = "General"
	baseDosageSafety  = 85
	maxDosePenalty    = 20
	pediatricPenalty  = 15
	geriatricPenalty  = 10
)

// DosagePipeline turns a drug's standard dosage into a patient-specific
// recommendation.
type DosagePipeline struct {
	logger *logrus.Logger
	store  domain.KnowledgeStore
}

// NewDosagePipeline creates a new dosage pipeline
func NewDosagePipeline(logger *logrus.Logger, store domain.KnowledgeStore) *DosagePipeline {
	return &DosagePipeline{
		logger: logger,
		store:  store,
	}
}

// Recommend produces a recommendation or an Unavailable outcome. A missing
// drug, an unparseable standard dosage and store failures are all reported
// as Unavailable; only a nil patient is an error.
func (p *DosagePipeline) Recommend(ctx context.Context, drugName string, patient *domain.PatientProfile, indication string) (domain.DosageOutcome, error) {
	if patient == nil {
		return domain.DosageOutcome{}, domain.NewValidationError("patient", "Patient profile is required", nil)
	}
	if strings.TrimSpace(indication) == "" {
		indication = defaultIndication
	}
	started := time.Now()
	logger := p.logger.WithFields(logrus.Fields{
		"drug":         drugName,
		"age_category": patient.AgeCategory(),
	})

	drug, err := p.store.Lookup(ctx, drugName)
	if err != nil {
		reason := unavailableReason(drugName, err)
		logger.WithError(err).Debug("Dosage recommendation unavailable")
		metrics.ObserveEvaluation("recommend_dosage", metrics.OutcomeUnavailable, started)
		return domain.DosageOutcome{Unavailable: reason}, nil
	}

	standard, err := dosage.Parse(drug.StandardDosage)
	if err != nil {
		logger.WithError(err).Warn("Standard dosage could not be parsed")
		metrics.ObserveEvaluation("recommend_dosage", metrics.OutcomeUnavailable, started)
		return domain.DosageOutcome{
			Unavailable: fmt.Sprintf("standard dosage for %s could not be parsed", drug.Name),
		}, nil
	}

	adjusted := adjustForAge(standard, patient)
	adjusted = adjustForConditions(adjusted, patient.Conditions, drug)

	contraindications, err := p.store.ContraindicationsFor(ctx, drug.Name, patient.Conditions, patient.Allergies)
	if err != nil {
		logger.WithError(err).Warn("Contraindication lookup failed")
		metrics.ObserveEvaluation("recommend_dosage", metrics.OutcomeUnavailable, started)
		return domain.DosageOutcome{
			Unavailable: fmt.Sprintf("contraindication data for %s is unavailable", drug.Name),
		}, nil
	}

	rec := &domain.DosageRecommendation{
		DrugName:        drug.Name,
		Dose:            dosage.FormatAmount(adjusted.Amount, adjusted.Unit),
		Frequency:       dosage.FormatFrequency(adjusted.Frequency),
		TotalDaily:      dosage.FormatAmount(adjusted.TotalDaily(), adjusted.Unit),
		Route:           "Oral",
		Duration:        "As prescribed",
		Indication:      indication,
		SafetyScore:     dosageSafetyScore(drug, patient, adjusted, contraindications),
		Warnings:        dosageWarnings(drug, patient),
		Monitoring:      monitoringText(drug, patient.Conditions),
		AgeAdjustment:   ageNarrative(patient),
		AgeSuitable:     patient.Age >= 18 || drug.HasPediatricNote(),
		DoseAppropriate: doseAppropriate(drug, standard, adjusted),
		Adjusted:        adjusted,
	}

	logger.WithFields(logrus.Fields{
		"safety_score":     rec.SafetyScore,
		"dose":             rec.Dose,
		"dose_appropriate": rec.DoseAppropriate,
	}).Debug("Generated dosage recommendation")
	metrics.ObserveEvaluation("recommend_dosage", metrics.OutcomeOK, started)

	return domain.DosageOutcome{Recommendation: rec}, nil
}

// AgeSpecificDosage returns the dosage text for the patient's age bracket,
// falling back to the standard dosage when no bracket note exists.
func (p *DosagePipeline) AgeSpecificDosage(ctx context.Context, drugName string, age int) (*domain.AgeSpecificDosage, error) {
	drug, err := p.store.Lookup(ctx, drugName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", drugName, err)
	}

	category := domain.AgeCategoryFor(age)
	result := &domain.AgeSpecificDosage{
		DrugName:          drug.Name,
		AgeCategory:       category,
		RecommendedDosage: drug.StandardDosage,
		StandardDosage:    drug.StandardDosage,
		MaxDailyDose:      domain.Value(drug.MaxDailyDose),
	}

	switch category {
	case domain.AgePediatric:
		result.AgeSpecific = true
		if drug.HasPediatricNote() {
			result.RecommendedDosage = domain.Value(drug.PediatricDosage)
		}
		result.SpecialConsiderations = domain.Value(drug.PediatricDosage)
	case domain.AgeGeriatric:
		result.AgeSpecific = true
		if drug.HasGeriatricNote() {
			result.RecommendedDosage = domain.Value(drug.GeriatricConsiderations)
		}
		result.SpecialConsiderations = domain.Value(drug.GeriatricConsiderations)
	default:
		result.SpecialConsiderations = domain.Value(drug.PediatricDosage)
	}

	return result, nil
}

func unavailableReason(drugName string, err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("drug %q not found", drugName)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "knowledge store unavailable"
	default:
		return fmt.Sprintf("drug %q could not be retrieved", drugName)
	}
}

func adjustForAge(spec domain.DosageSpec, patient *domain.PatientProfile) domain.DosageSpec {
	category := patient.AgeCategory()
	adj := ageAdjustments[category]
	if adj.WeightBased {
		return spec.Scale(patient.WeightKg / referenceAdultWeightKg)
	}
	return spec.Scale(adj.Factor)
}

// adjustForConditions applies the renal and hepatic reductions. Each
// condition is checked for both, so a condition naming kidney and liver
// disease, or separate renal and hepatic conditions, stack.
func adjustForConditions(spec domain.DosageSpec, conditions []string, drug *domain.DrugRecord) domain.DosageSpec {
	for _, condition := range conditions {
		c := strings.ToLower(condition)
		if (strings.Contains(c, "kidney") || strings.Contains(c, "renal")) && drug.HasRenalAdjustment() {
			spec = spec.Scale(renalDoseFactor)
		}
		if (strings.Contains(c, "liver") || strings.Contains(c, "hepatic")) && drug.HasHepaticAdjustment() {
			spec = spec.Scale(hepaticDoseFactor)
		}
	}
	return spec
}

func dosageSafetyScore(drug *domain.DrugRecord, patient *domain.PatientProfile, adjusted domain.DosageSpec, contraindications []domain.Contraindication) int {
	score := baseDosageSafety
	for _, ci := range contraindications {
		score -= dosagePenalty.For(ci.Severity)
	}

	if maxDose, ok := dosage.ParseMaxDose(domain.Value(drug.MaxDailyDose)); ok && adjusted.TotalDaily() > maxDose {
		score -= maxDosePenalty
	}

	switch {
	case patient.Age < 18 && !drug.HasPediatricNote():
		score -= pediatricPenalty
	case patient.Age >= 65 && !drug.HasGeriatricNote():
		score -= geriatricPenalty
	}

	return clamp(score, 0, 100)
}

func dosageWarnings(drug *domain.DrugRecord, patient *domain.PatientProfile) []string {
	warnings := []string{}
	if w := ageAdjustments[patient.AgeCategory()].Warning; w != "" {
		warnings = append(warnings, w)
	}

	for _, condition := range patient.Conditions {
		c := strings.ToLower(condition)
		switch {
		case strings.Contains(c, "kidney"):
			warnings = append(warnings, "Renal function monitoring required")
		case strings.Contains(c, "liver"):
			warnings = append(warnings, "Hepatic function monitoring required")
		case strings.Contains(c, "heart"):
			warnings = append(warnings, "Cardiac monitoring may be required")
		}
	}

	if drug.HasSeriousAdverseEffects() {
		warnings = append(warnings, "Monitor for: "+domain.Value(drug.SeriousAdverseEffects))
	}
	return warnings
}

func monitoringText(drug *domain.DrugRecord, conditions []string) string {
	var items []string
	if params := domain.Value(drug.MonitoringParameters); strings.TrimSpace(params) != "" {
		items = append(items, params)
	}
	for _, condition := range conditions {
		if note, ok := conditionMonitoring[strings.ToLower(strings.TrimSpace(condition))]; ok {
			items = append(items, note)
		}
	}
	if len(items) == 0 {
		return "Standard clinical monitoring"
	}
	return strings.Join(items, "; ")
}

func ageNarrative(patient *domain.PatientProfile) string {
	narrative := ageAdjustments[patient.AgeCategory()].Narrative
	if strings.Contains(narrative, "%d") {
		return fmt.Sprintf(narrative, patient.Age)
	}
	return narrative
}

// doseAppropriate is false when the adjusted total exceeds the maximum daily
// dose, or falls under a tenth of the unadjusted standard total.
func doseAppropriate(drug *domain.DrugRecord, standard, adjusted domain.DosageSpec) bool {
	if maxDose, ok := dosage.ParseMaxDose(domain.Value(drug.MaxDailyDose)); ok && adjusted.TotalDaily() > maxDose {
		return false
	}
	return adjusted.TotalDaily() >= standard.TotalDaily()*0.1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
