package service

import (
	"context"
	"strings"

	"github.com/rx-safety-engine/internal/domain"
)

// PatientInput is the wire form of a patient shared by the REST, MCP and
// CLI surfaces. Age and weight are required.
type PatientInput struct {
	Name            string   `json:"name,omitempty"`
	Age             *int     `json:"age"`
	WeightKg        float64  `json:"weight"`
	Conditions      []string `json:"conditions,omitempty"`
	Allergies       []string `json:"allergies,omitempty"`
	HeightCm        *float64 `json:"height,omitempty"`
	Sex             string   `json:"sex,omitempty"`
	PregnancyStatus string   `json:"pregnancy_status,omitempty"`
	Lactating       bool     `json:"lactation_status,omitempty"`
	SmokingStatus   string   `json:"smoking_status,omitempty"`
	AlcoholUse      string   `json:"alcohol_use,omitempty"`
}

// Profile validates the input and builds the domain profile.
func (in *PatientInput) Profile() (*domain.PatientProfile, error) {
	if in == nil {
		return nil, domain.NewValidationError("patient", "Patient profile is required", nil)
	}
	if in.Age == nil {
		return nil, domain.NewValidationError("age", "Age is required", nil)
	}

	var opts []domain.PatientOption
	if in.HeightCm != nil {
		opts = append(opts, domain.WithHeight(*in.HeightCm))
	}
	if in.Sex != "" {
		opts = append(opts, domain.WithSex(in.Sex))
	}
	if in.PregnancyStatus != "" {
		opts = append(opts, domain.WithPregnancyStatus(in.PregnancyStatus))
	}
	if in.Lactating {
		opts = append(opts, domain.WithLactation(true))
	}
	if in.SmokingStatus != "" {
		opts = append(opts, domain.WithSmokingStatus(in.SmokingStatus))
	}
	if in.AlcoholUse != "" {
		opts = append(opts, domain.WithAlcoholUse(in.AlcoholUse))
	}

	return domain.NewPatientProfile(in.Name, *in.Age, in.WeightKg, in.Conditions, in.Allergies, opts...)
}

// DosageRequest asks for a patient-specific dose.
type DosageRequest struct {
	Drug       string        `json:"drug"`
	Indication string        `json:"indication,omitempty"`
	Patient    *PatientInput `json:"patient"`
}

// AlternativesRequest asks for substitutes of a problematic drug.
type AlternativesRequest struct {
	Drug             string        `json:"drug"`
	Reason           string        `json:"reason,omitempty"`
	TherapeuticClass string        `json:"therapeutic_class,omitempty"`
	Patient          *PatientInput `json:"patient"`
}

// AnalysisRequest carries extracted medication records for batch analysis.
type AnalysisRequest struct {
	Medications []domain.MedicationEntry `json:"medications"`
	Patient     *PatientInput            `json:"patient"`
}

// RecommendDosage validates the request and runs the dosage pipeline.
func (e *Engines) RecommendDosage(ctx context.Context, req DosageRequest) (domain.DosageOutcome, error) {
	if strings.TrimSpace(req.Drug) == "" {
		return domain.DosageOutcome{}, domain.NewValidationError("drug", "Drug name is required", req.Drug)
	}
	patient, err := req.Patient.Profile()
	if err != nil {
		return domain.DosageOutcome{}, err
	}
	return e.Dosage.Recommend(ctx, req.Drug, patient, req.Indication)
}

// FindAlternatives validates the request and runs the alternative engine.
func (e *Engines) FindAlternatives(ctx context.Context, req AlternativesRequest) (domain.AlternativesResult, error) {
	reason, err := domain.ParseReason(req.Reason)
	if err != nil {
		return domain.AlternativesResult{}, err
	}
	patient, err := req.Patient.Profile()
	if err != nil {
		return domain.AlternativesResult{}, err
	}
	return e.Alternatives.FindAlternatives(ctx, req.Drug, patient, reason, req.TherapeuticClass)
}

// Analyze validates the request and runs the prescription analyzer.
func (e *Engines) Analyze(ctx context.Context, req AnalysisRequest) (*domain.PrescriptionAnalysis, error) {
	if len(req.Medications) == 0 {
		return nil, domain.NewValidationError("medications", "At least one medication is required", nil)
	}
	patient, err := req.Patient.Profile()
	if err != nil {
		return nil, err
	}
	return e.Analyzer.Analyze(ctx, req.Medications, patient)
}

// SearchDrugs runs a ranked name search. A non-positive limit uses the
// store default.
func (e *Engines) SearchDrugs(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	if strings.TrimSpace(term) == "" {
		return nil, domain.NewValidationError("q", "Search term is required", term)
	}
	results, err := e.Store.Search(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []domain.DrugSummary{}
	}
	return results, nil
}
