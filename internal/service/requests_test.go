package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/domain"
)

func intPtr(v int) *int { return &v }

func adultInput() *PatientInput {
	return &PatientInput{Name: "Test", Age: intPtr(45), WeightKg: 70}
}

func TestPatientInput_Profile(t *testing.T) {
	height := 180.0
	in := &PatientInput{
		Name:            " Jane ",
		Age:             intPtr(30),
		WeightKg:        64,
		Conditions:      []string{" Hypertension ", ""},
		HeightCm:        &height,
		Sex:             "female",
		PregnancyStatus: "Pregnant",
		Lactating:       true,
		AlcoholUse:      "Moderate",
	}

	profile, err := in.Profile()
	require.NoError(t, err)
	assert.Equal(t, "Jane", profile.Name)
	assert.Equal(t, []string{"Hypertension"}, profile.Conditions)
	assert.Equal(t, "pregnant", profile.PregnancyStatus)
	assert.True(t, profile.Lactating)
	assert.Equal(t, "moderate", profile.AlcoholUse)
	require.NotNil(t, profile.HeightCm)
	assert.Equal(t, 180.0, *profile.HeightCm)
}

func TestPatientInput_ProfileValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    *PatientInput
		field string
	}{
		{"nil patient", nil, "patient"},
		{"missing age", &PatientInput{WeightKg: 70}, "age"},
		{"age out of range", &PatientInput{Age: intPtr(151), WeightKg: 70}, "age"},
		{"missing weight", &PatientInput{Age: intPtr(40)}, "weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Profile()
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestEngines_RecommendDosage(t *testing.T) {
	engines := NewEngines(testLogger(), referenceStore(t))
	ctx := context.Background()

	outcome, err := engines.RecommendDosage(ctx, DosageRequest{Drug: "Metformin", Patient: adultInput()})
	require.NoError(t, err)
	require.True(t, outcome.Available())
	assert.Equal(t, "Metformin", outcome.Recommendation.DrugName)

	outcome, err = engines.RecommendDosage(ctx, DosageRequest{Drug: "Unobtainium", Patient: adultInput()})
	require.NoError(t, err)
	assert.False(t, outcome.Available())
	assert.NotEmpty(t, outcome.Unavailable)

	_, err = engines.RecommendDosage(ctx, DosageRequest{Drug: " ", Patient: adultInput()})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "drug", verr.Field)
}

func TestEngines_FindAlternatives(t *testing.T) {
	engines := NewEngines(testLogger(), antihypertensiveStore(t))
	ctx := context.Background()

	result, err := engines.FindAlternatives(ctx, AlternativesRequest{Drug: "Lisinopril", Reason: "side effects", Patient: adultInput()})
	require.NoError(t, err)
	assert.Equal(t, "Lisinopril", result.Drug)
	assert.False(t, result.Fallback)
	assert.Equal(t, []string{
		"Enalapril", "Captopril", "Losartan", "Metoprolol", "Amlodipine", "Hydrochlorothiazide", "Ramipril",
	}, candidateNames(result.Candidates))

	// The reference dataset carries no second ACE inhibitor.
	reference := NewEngines(testLogger(), referenceStore(t))
	result, err = reference.FindAlternatives(ctx, AlternativesRequest{Drug: "Lisinopril", Reason: "side effects", Patient: adultInput()})
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Empty(t, result.Candidates)

	_, err = engines.FindAlternatives(ctx, AlternativesRequest{Drug: "Lisinopril", Reason: "boredom", Patient: adultInput()})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "reason", verr.Field)
}

func TestEngines_Analyze(t *testing.T) {
	engines := NewEngines(testLogger(), referenceStore(t))
	ctx := context.Background()

	analysis, err := engines.Analyze(ctx, AnalysisRequest{
		Medications: []domain.MedicationEntry{
			{Name: "Warfarin", Dosage: "5mg", Frequency: "once daily", Confidence: 0.9},
			{Name: "Ibuprofen", Dosage: "400mg", Frequency: "three times daily", Confidence: 0.8},
		},
		Patient: adultInput(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, analysis.TotalDrugs)
	assert.Len(t, analysis.Interactions, 1)

	_, err = engines.Analyze(ctx, AnalysisRequest{Patient: adultInput()})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "medications", verr.Field)
}

func TestEngines_SearchDrugs(t *testing.T) {
	engines := NewEngines(testLogger(), referenceStore(t))
	ctx := context.Background()

	results, err := engines.SearchDrugs(ctx, "met", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Metformin", results[0].Name)

	results, err = engines.SearchDrugs(ctx, "zzz", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = engines.SearchDrugs(ctx, "", 5)
	assert.Error(t, err)
}
