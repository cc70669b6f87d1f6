package domain

// DosageSpec is a parsed dose: Amount Unit taken Frequency times per day.
type DosageSpec struct {
	Amount    float64 `json:"amount"`
	Unit      string  `json:"unit"`
	Frequency int     `json:"frequency"`
}

// TotalDaily is Amount x Frequency.
func (s DosageSpec) TotalDaily() float64 {
	return s.Amount * float64(s.Frequency)
}

// Scale returns a copy with the amount multiplied by factor.
func (s DosageSpec) Scale(factor float64) DosageSpec {
	s.Amount *= factor
	return s
}

// DosageRecommendation is the patient-specific output of the dosage pipeline.
type DosageRecommendation struct {
	DrugName        string   `json:"drug_name"`
	Dose            string   `json:"dosage"`
	Frequency       string   `json:"frequency"`
	TotalDaily      string   `json:"total_daily"`
	Route           string   `json:"route"`
	Duration        string   `json:"duration"`
	Indication      string   `json:"indication"`
	SafetyScore     int      `json:"safety_score"`
	Warnings        []string `json:"warnings"`
	Monitoring      string   `json:"monitoring"`
	AgeAdjustment   string   `json:"age_considerations"`
	AgeSuitable     bool     `json:"age_suitable"`
	DoseAppropriate bool     `json:"dosage_appropriate"`

	Adjusted DosageSpec `json:"adjusted"`
}

// DosageOutcome is either a Recommendation or an Unavailable reason. Exactly
// one of the two is set.
type DosageOutcome struct {
	Recommendation *DosageRecommendation `json:"recommendation,omitempty"`
	Unavailable    string                `json:"unavailable,omitempty"`
}

// Available reports whether a recommendation was produced.
func (o DosageOutcome) Available() bool {
	return o.Recommendation != nil
}

// AgeSpecificDosage is the dosage text appropriate to a patient's age bracket.
type AgeSpecificDosage struct {
	DrugName              string      `json:"drug_name"`
	AgeCategory           AgeCategory `json:"age_category"`
	RecommendedDosage     string      `json:"recommended_dosage"`
	StandardDosage        string      `json:"standard_dosage"`
	MaxDailyDose          string      `json:"max_daily_dose,omitempty"`
	AgeSpecific           bool        `json:"age_specific"`
	SpecialConsiderations string      `json:"special_considerations,omitempty"`
}
