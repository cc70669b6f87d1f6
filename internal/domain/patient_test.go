package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatientProfile_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		age     int
		weight  float64
		field   string
		wantErr bool
	}{
		{"newborn", 0, 3.5, "", false},
		{"upper age", 150, 70, "", false},
		{"upper weight", 40, 500, "", false},
		{"negative age", -1, 70, "age", true},
		{"age too high", 151, 70, "age", true},
		{"zero weight", 40, 0, "weight", true},
		{"weight too high", 40, 500.1, "weight", true},
		{"nan weight", 40, math.NaN(), "weight", true},
		{"infinite weight", 40, math.Inf(1), "weight", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPatientProfile("Test", tt.age, tt.weight, nil, nil)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.age, p.Age)
				return
			}

			require.Error(t, err)
			assert.Nil(t, p)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNewPatientProfile_CleansLists(t *testing.T) {
	p, err := NewPatientProfile(" Jane ", 45, 68,
		[]string{" Hypertension ", "", "  ", "Diabetes"},
		[]string{"Penicillin", " "},
	)
	require.NoError(t, err)

	assert.Equal(t, "Jane", p.Name)
	assert.Equal(t, []string{"Hypertension", "Diabetes"}, p.Conditions)
	assert.Equal(t, []string{"Penicillin"}, p.Allergies)
}

func TestPatientProfile_Categories(t *testing.T) {
	p, err := NewPatientProfile("Elder", 82, 95, []string{"Chronic kidney disease"}, nil,
		WithHeight(170), WithAlcoholUse("Heavy"), WithLactation(false))
	require.NoError(t, err)

	bmi, ok := p.BMI()
	require.True(t, ok)
	assert.InDelta(t, 32.87, bmi, 0.01)
	assert.Equal(t, "obese", p.WeightCategory())
	assert.Equal(t, AgeGeriatric, p.AgeCategory())
	assert.Equal(t, "impaired", p.RenalFunctionCategory())
	assert.Equal(t, "possibly_impaired", p.HepaticFunctionCategory())
	assert.Equal(t, []string{"geriatric", "renal_impairment", "hepatic_impairment"}, p.SpecialPopulations())
	assert.True(t, p.HasCondition("KIDNEY"))
	assert.False(t, p.HasAllergy("sulfa"))
}

func TestPatientProfile_WeightCategoryWithoutHeight(t *testing.T) {
	tests := []struct {
		weight   float64
		expected string
	}{
		{45, "low_weight"},
		{70, "normal_weight"},
		{120, "high_weight"},
	}
	for _, tt := range tests {
		p, err := NewPatientProfile("P", 30, tt.weight, nil, nil)
		require.NoError(t, err)
		_, ok := p.BMI()
		assert.False(t, ok)
		assert.Equal(t, tt.expected, p.WeightCategory())
	}
}

func TestPatientProfile_InvalidHeight(t *testing.T) {
	_, err := NewPatientProfile("P", 30, 70, nil, nil, WithHeight(0))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "height", ve.Field)
}

func TestPatientProfile_SpecialPopulationsPregnancy(t *testing.T) {
	p, err := NewPatientProfile("P", 16, 55, nil, nil, WithPregnancyStatus("Pregnant"), WithLactation(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"pediatric", "pregnancy", "lactation"}, p.SpecialPopulations())
}
