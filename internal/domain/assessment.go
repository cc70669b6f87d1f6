package domain

// RiskAssessment aggregates a finding list into a bounded score.
type RiskAssessment struct {
	Score           int       `json:"score"`
	Level           RiskLevel `json:"level"`
	Summary         string    `json:"summary"`
	Recommendations []string  `json:"recommendations"`
	HighCount       int       `json:"high_risk_count"`
	ModerateCount   int       `json:"moderate_risk_count"`
	LowCount        int       `json:"low_risk_count"`
	TotalCount      int       `json:"total_interactions"`
}

// MonitoringPlan lists what to watch while the regimen is in place.
type MonitoringPlan struct {
	LabMonitoring      []string `json:"lab_monitoring"`
	ClinicalMonitoring []string `json:"clinical_monitoring"`
	Frequency          string   `json:"frequency"`
	Duration           string   `json:"duration"`
}

// MedicationEntry is one structured record produced by the upstream
// extraction step. Confidence is carried through untouched.
type MedicationEntry struct {
	Name         string  `json:"name"`
	Dosage       string  `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Duration     string  `json:"duration,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// DrugProfile pairs an extracted medication with its dosage outcome.
type DrugProfile struct {
	Name            string                `json:"name"`
	ExtractedDosage string                `json:"extracted_dosage"`
	Recommendation  *DosageRecommendation `json:"recommendation,omitempty"`
	Unavailable     string                `json:"unavailable,omitempty"`
	DosageMatches   bool                  `json:"dosage_matches"`
}

// AnalysisMessage is a typed summary line of a prescription analysis.
type AnalysisMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PrescriptionAnalysis is the batch result across every extracted medication.
type PrescriptionAnalysis struct {
	TotalDrugs      int                  `json:"total_drugs"`
	Interactions    []InteractionFinding `json:"interactions"`
	Risk            RiskAssessment       `json:"risk"`
	Monitoring      MonitoringPlan       `json:"monitoring"`
	DrugProfiles    []DrugProfile        `json:"drug_profiles"`
	OverallSafety   float64              `json:"overall_safety_score"`
	Recommendations []AnalysisMessage    `json:"recommendations"`

	DrugMonitoring map[string]MonitoringRequirement `json:"drug_monitoring,omitempty"`
}
