package domain

import "strings"

// DrugRecord is a full knowledge-store entry. Optional attributes are nil when
// the store has no value for them. A record is immutable once returned.
type DrugRecord struct {
	Name             string `json:"name"`
	GenericName      string `json:"generic_name"`
	TherapeuticClass string `json:"therapeutic_class"`
	Mechanism        string `json:"mechanism,omitempty"`
	StandardDosage   string `json:"standard_dosage"`
	CostTier         string `json:"cost_tier,omitempty"`

	MaxDailyDose            *string `json:"max_daily_dose,omitempty"`
	HalfLife                *string `json:"half_life,omitempty"`
	Bioavailability         *string `json:"bioavailability,omitempty"`
	PregnancyCategory       *string `json:"pregnancy_category,omitempty"`
	PediatricDosage         *string `json:"pediatric_dosage,omitempty"`
	GeriatricConsiderations *string `json:"geriatric_considerations,omitempty"`
	RenalAdjustment         *string `json:"renal_adjustment,omitempty"`
	HepaticAdjustment       *string `json:"hepatic_adjustment,omitempty"`
	CommonSideEffects       *string `json:"common_side_effects,omitempty"`
	SeriousAdverseEffects   *string `json:"serious_adverse_effects,omitempty"`
	MonitoringParameters    *string `json:"monitoring_parameters,omitempty"`

	Indications []string `json:"indications,omitempty"`
}

// DrugSummary is the abbreviated row returned by search and alternative queries.
type DrugSummary struct {
	Name             string `json:"name"`
	GenericName      string `json:"generic_name"`
	TherapeuticClass string `json:"therapeutic_class"`
	Mechanism        string `json:"mechanism,omitempty"`
	StandardDosage   string `json:"standard_dosage,omitempty"`
	CostTier         string `json:"cost_tier,omitempty"`
}

// Contraindication is a documented reason a drug should not be used for a
// given patient condition or allergy.
type Contraindication struct {
	Kind     ContraindicationKind `json:"kind"`
	Label    string               `json:"label"`
	Severity Severity             `json:"severity"`
	Reason   string               `json:"reason"`
}

// InteractionFinding describes one drug pair. DrugA and DrugB keep the order
// the caller supplied; severity and description do not depend on that order.
type InteractionFinding struct {
	DrugA                string        `json:"drug_a"`
	DrugB                string        `json:"drug_b"`
	Severity             Severity      `json:"severity"`
	Mechanism            string        `json:"mechanism"`
	Description          string        `json:"description"`
	ClinicalSignificance string        `json:"clinical_significance,omitempty"`
	Recommendation       string        `json:"recommendation"`
	MonitoringRequired   bool          `json:"monitoring_required"`
	Source               FindingSource `json:"source"`
}

// Text returns a pointer to s, or nil when s is blank. Stores use it to turn
// nullable columns into optional record fields.
func Text(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional field, returning "" when absent.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func present(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}

// HasRenalAdjustment reports whether the record documents a renal adjustment.
// Any documented text counts, including "No adjustment needed".
func (d *DrugRecord) HasRenalAdjustment() bool { return present(d.RenalAdjustment) }

// HasHepaticAdjustment reports whether the record documents a hepatic adjustment.
func (d *DrugRecord) HasHepaticAdjustment() bool { return present(d.HepaticAdjustment) }

// HasPediatricNote reports whether pediatric dosing is documented.
func (d *DrugRecord) HasPediatricNote() bool { return present(d.PediatricDosage) }

// HasGeriatricNote reports whether geriatric considerations are documented.
func (d *DrugRecord) HasGeriatricNote() bool { return present(d.GeriatricConsiderations) }

// HasSeriousAdverseEffects reports whether serious adverse effects are documented.
func (d *DrugRecord) HasSeriousAdverseEffects() bool { return present(d.SeriousAdverseEffects) }

// Summary projects the record onto a DrugSummary.
func (d *DrugRecord) Summary() DrugSummary {
	return DrugSummary{
		Name:             d.Name,
		GenericName:      d.GenericName,
		TherapeuticClass: d.TherapeuticClass,
		Mechanism:        d.Mechanism,
		StandardDosage:   d.StandardDosage,
		CostTier:         d.CostTier,
	}
}

// Matches reports whether name equals the record's name or generic name,
// ignoring case.
func (d *DrugRecord) Matches(name string) bool {
	return strings.EqualFold(d.Name, name) || (d.GenericName != "" && strings.EqualFold(d.GenericName, name))
}

// AllergyContraindications flags one High contraindication for every allergy
// the matcher finds in drugName. A nil matcher uses case-insensitive
// substring containment, so an allergy to "penicillin" flags "Penicillin VK".
func AllergyContraindications(drugName string, allergies []string, matcher NameMatcher) []Contraindication {
	var out []Contraindication
	for _, allergy := range allergies {
		allergy = strings.TrimSpace(allergy)
		if allergy == "" {
			continue
		}
		var hit bool
		if matcher != nil {
			hit = matcher.Match(drugName, allergy)
		} else {
			hit = strings.Contains(strings.ToLower(drugName), strings.ToLower(allergy))
		}
		if hit {
			out = append(out, Contraindication{
				Kind:     KindAllergy,
				Label:    "Allergy to " + allergy,
				Severity: SeverityHigh,
				Reason:   "Patient has documented allergy to this medication",
			})
		}
	}
	return out
}
