package domain

import (
	"math"
	"strings"
)

// PatientProfile is the caller-owned description of the patient every
// evaluation runs against. Engines read it and never modify it.
type PatientProfile struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	WeightKg   float64  `json:"weight"`
	Conditions []string `json:"conditions"`
	Allergies  []string `json:"allergies"`

	HeightCm        *float64 `json:"height,omitempty"`
	Sex             string   `json:"sex,omitempty"`
	PregnancyStatus string   `json:"pregnancy_status,omitempty"`
	Lactating       bool     `json:"lactation_status,omitempty"`
	SmokingStatus   string   `json:"smoking_status,omitempty"`
	AlcoholUse      string   `json:"alcohol_use,omitempty"`
}

// PatientOption sets an optional attribute during construction.
type PatientOption func(*PatientProfile)

// WithHeight sets the height in centimetres.
func WithHeight(cm float64) PatientOption {
	return func(p *PatientProfile) { p.HeightCm = &cm }
}

// WithSex sets the recorded sex.
func WithSex(sex string) PatientOption {
	return func(p *PatientProfile) { p.Sex = strings.TrimSpace(sex) }
}

// WithPregnancyStatus sets the pregnancy status ("pregnant", "trying_to_conceive", ...).
func WithPregnancyStatus(status string) PatientOption {
	return func(p *PatientProfile) { p.PregnancyStatus = strings.ToLower(strings.TrimSpace(status)) }
}

// WithLactation marks the patient as breastfeeding.
func WithLactation(lactating bool) PatientOption {
	return func(p *PatientProfile) { p.Lactating = lactating }
}

// WithSmokingStatus sets the smoking status.
func WithSmokingStatus(status string) PatientOption {
	return func(p *PatientProfile) { p.SmokingStatus = strings.ToLower(strings.TrimSpace(status)) }
}

// WithAlcoholUse sets the alcohol use level ("none", "moderate", "heavy", "chronic").
func WithAlcoholUse(use string) PatientOption {
	return func(p *PatientProfile) { p.AlcoholUse = strings.ToLower(strings.TrimSpace(use)) }
}

// NewPatientProfile validates the bounds and normalises the list fields.
// Age must lie in [0,150] and weight in (0,500]. Out-of-range values are
// rejected with a *ValidationError, never corrected.
func NewPatientProfile(name string, age int, weightKg float64, conditions, allergies []string, opts ...PatientOption) (*PatientProfile, error) {
	if age < 0 || age > 150 {
		return nil, NewValidationError("age", "Age must be between 0 and 150", age)
	}
	if math.IsNaN(weightKg) || weightKg <= 0 || weightKg > 500 {
		return nil, NewValidationError("weight", "Weight must be between 0 and 500 kg", weightKg)
	}

	p := &PatientProfile{
		Name:       strings.TrimSpace(name),
		Age:        age,
		WeightKg:   weightKg,
		Conditions: cleanList(conditions),
		Allergies:  cleanList(allergies),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.HeightCm != nil && *p.HeightCm <= 0 {
		return nil, NewValidationError("height", "Height must be positive", *p.HeightCm)
	}
	return p, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AgeCategory returns the dosing age bracket.
func (p *PatientProfile) AgeCategory() AgeCategory {
	return AgeCategoryFor(p.Age)
}

// BMI returns the body-mass index, or false when height is unknown.
func (p *PatientProfile) BMI() (float64, bool) {
	if p.HeightCm == nil || *p.HeightCm <= 0 {
		return 0, false
	}
	m := *p.HeightCm / 100
	return p.WeightKg / (m * m), true
}

// WeightCategory classifies by BMI when height is known, otherwise by raw weight.
func (p *PatientProfile) WeightCategory() string {
	if bmi, ok := p.BMI(); ok {
		switch {
		case bmi < 18.5:
			return "underweight"
		case bmi < 25:
			return "normal"
		case bmi < 30:
			return "overweight"
		default:
			return "obese"
		}
	}
	switch {
	case p.WeightKg < 50:
		return "low_weight"
	case p.WeightKg < 90:
		return "normal_weight"
	default:
		return "high_weight"
	}
}

// HasCondition reports whether any recorded condition contains the term, ignoring case.
func (p *PatientProfile) HasCondition(term string) bool {
	return containsFold(p.Conditions, term)
}

// HasAllergy reports whether any recorded allergy contains the substance, ignoring case.
func (p *PatientProfile) HasAllergy(substance string) bool {
	return containsFold(p.Allergies, substance)
}

func containsFold(list []string, term string) bool {
	term = strings.ToLower(term)
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// RenalFunctionCategory estimates renal function from conditions and age.
func (p *PatientProfile) RenalFunctionCategory() string {
	switch {
	case p.HasCondition("kidney disease") || p.HasCondition("renal"):
		return "impaired"
	case p.Age >= 80:
		return "possibly_impaired"
	case p.Age >= 65:
		return "age_related_decline"
	default:
		return "normal"
	}
}

// HepaticFunctionCategory estimates hepatic function from conditions and alcohol use.
func (p *PatientProfile) HepaticFunctionCategory() string {
	switch {
	case p.HasCondition("liver disease") || p.HasCondition("hepatic") || p.HasCondition("cirrhosis"):
		return "impaired"
	case p.AlcoholUse == "heavy" || p.AlcoholUse == "chronic":
		return "possibly_impaired"
	default:
		return "normal"
	}
}

// SpecialPopulations lists the population tags relevant to prescribing.
func (p *PatientProfile) SpecialPopulations() []string {
	var pops []string
	switch p.AgeCategory() {
	case AgePediatric:
		pops = append(pops, "pediatric")
	case AgeGeriatric:
		pops = append(pops, "geriatric")
	}
	if p.PregnancyStatus == "pregnant" || p.PregnancyStatus == "trying_to_conceive" {
		pops = append(pops, "pregnancy")
	}
	if p.Lactating {
		pops = append(pops, "lactation")
	}
	if p.RenalFunctionCategory() != "normal" {
		pops = append(pops, "renal_impairment")
	}
	if p.HepaticFunctionCategory() != "normal" {
		pops = append(pops, "hepatic_impairment")
	}
	return pops
}
