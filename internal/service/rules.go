package service

import "github.com/rx-safety-engine/internal/domain"

// Static tables shared by every engine. They are built once at package
// initialisation and never written afterwards.

// interactionClasses drive pattern-based interaction detection.
var interactionClasses = []domain.TherapeuticClass{
	{ID: "cyp450_inhibitors", Members: []string{"ciprofloxacin", "fluconazole", "clarithromycin", "erythromycin", "ketoconazole", "omeprazole", "fluvoxamine"}},
	{ID: "cyp450_inducers", Members: []string{"rifampin", "carbamazepine", "phenytoin", "phenobarbital", "st johns wort", "modafinil"}},
	{ID: "anticoagulants", Members: []string{"warfarin", "heparin", "rivaroxaban", "apixaban", "dabigatran"}},
	{ID: "antiplatelets", Members: []string{"aspirin", "clopidogrel", "ticagrelor", "prasugrel"}},
	{ID: "ace_inhibitors", Members: []string{"lisinopril", "enalapril", "captopril", "ramipril"}},
	{ID: "arbs", Members: []string{"losartan", "valsartan", "irbesartan", "olmesartan"}},
	{ID: "diuretics", Members: []string{"furosemide", "hydrochlorothiazide", "spironolactone", "amiloride"}},
	{ID: "beta_blockers", Members: []string{"metoprolol", "propranolol", "atenolol", "carvedilol"}},
	{ID: "statins", Members: []string{"atorvastatin", "simvastatin", "lovastatin", "rosuvastatin"}},
	{ID: "nsaids", Members: []string{"ibuprofen", "naproxen", "diclofenac", "celecoxib"}},
	{ID: "antidepressants_ssri", Members: []string{"sertraline", "fluoxetine", "paroxetine", "citalopram"}},
	{ID: "antidepressants_snri", Members: []string{"venlafaxine", "duloxetine", "desvenlafaxine"}},
	{ID: "benzodiazepines", Members: []string{"lorazepam", "alprazolam", "clonazepam", "diazepam"}},
	{ID: "opioids", Members: []string{"morphine", "oxycodone", "hydrocodone", "tramadol", "codeine"}},
}

// therapeuticGroups drive alternative ranking.
var therapeuticGroups = []domain.TherapeuticClass{
	{ID: "ace_inhibitors", Members: []string{"lisinopril", "enalapril", "captopril", "ramipril"}, Mechanism: "ACE inhibition", Indication: "Hypertension, Heart Failure"},
	{ID: "arbs", Members: []string{"losartan", "valsartan", "irbesartan", "olmesartan"}, Mechanism: "Angiotensin receptor blockade", Indication: "Hypertension, Heart Failure"},
	{ID: "statins", Members: []string{"atorvastatin", "simvastatin", "rosuvastatin", "pravastatin"}, Mechanism: "HMG-CoA reductase inhibition", Indication: "Hyperlipidemia"},
	{ID: "beta_blockers", Members: []string{"metoprolol", "atenolol", "propranolol", "carvedilol"}, Mechanism: "Beta-adrenergic blockade", Indication: "Hypertension, Heart Disease"},
	{ID: "diuretics_thiazide", Members: []string{"hydrochlorothiazide", "chlorthalidone", "indapamide"}, Mechanism: "Sodium-chloride cotransporter inhibition", Indication: "Hypertension, Edema"},
	{ID: "diuretics_loop", Members: []string{"furosemide", "bumetanide", "torsemide"}, Mechanism: "Na-K-2Cl cotransporter inhibition", Indication: "Heart Failure, Edema"},
	{ID: "calcium_channel_blockers", Members: []string{"amlodipine", "nifedipine", "diltiazem", "verapamil"}, Mechanism: "Calcium channel blockade", Indication: "Hypertension, Angina"},
	{ID: "proton_pump_inhibitors", Members: []string{"omeprazole", "lansoprazole", "pantoprazole", "esomeprazole"}, Mechanism: "Proton pump inhibition", Indication: "GERD, Peptic Ulcer"},
	{ID: "ssri_antidepressants", Members: []string{"sertraline", "fluoxetine", "paroxetine", "citalopram"}, Mechanism: "Selective serotonin reuptake inhibition", Indication: "Depression, Anxiety"},
	{ID: "antibiotics_penicillin", Members: []string{"amoxicillin", "ampicillin", "penicillin"}, Mechanism: "Beta-lactam antibiotic", Indication: "Bacterial Infections"},
	{ID: "antibiotics_macrolide", Members: []string{"azithromycin", "clarithromycin", "erythromycin"}, Mechanism: "Protein synthesis inhibition", Indication: "Bacterial Infections"},
	{ID: "antibiotics_quinolone", Members: []string{"ciprofloxacin", "levofloxacin", "moxifloxacin"}, Mechanism: "DNA gyrase inhibition", Indication: "Bacterial Infections"},
}

// indicationKeywords maps therapeutic-class text to a coarse indication.
// Checked in order.
var indicationKeywords = []struct {
	keyword    string
	indication string
}{
	{"antihypertensive", "hypertension"},
	{"antidepressant", "depression"},
	{"antibiotic", "bacterial_infection"},
	{"analgesic", "pain"},
	{"anticoagulant", "anticoagulation"},
}

// crossClassAlternatives lists the groups worth trying when switching class.
// Group ids without a therapeuticGroups entry are skipped.
var crossClassAlternatives = map[string][]string{
	"hypertension":        {"ace_inhibitors", "arbs", "beta_blockers", "calcium_channel_blockers", "diuretics_thiazide"},
	"depression":          {"ssri_antidepressants", "snri_antidepressants", "tricyclic_antidepressants"},
	"bacterial_infection": {"antibiotics_penicillin", "antibiotics_macrolide", "antibiotics_quinolone", "antibiotics_cephalosporin"},
}

// classRule fires when one drug belongs to a class in A and the other to a
// class in B.
type classRule struct {
	A []string
	B []string
}

var highRiskRules = []classRule{
	{A: []string{"anticoagulants"}, B: []string{"antiplatelets"}},
	{A: []string{"anticoagulants"}, B: []string{"nsaids"}},
	{A: []string{"ace_inhibitors", "arbs"}, B: []string{"diuretics"}},
	{A: []string{"cyp450_inhibitors"}, B: []string{"statins"}},
	{A: []string{"antidepressants_ssri", "antidepressants_snri"}, B: []string{"opioids"}},
	{A: []string{"benzodiazepines"}, B: []string{"opioids"}},
	{A: []string{"beta_blockers"}, B: []string{"diuretics"}},
}

var mediumRiskRules = []classRule{
	{A: []string{"cyp450_inhibitors"}, B: []string{"beta_blockers"}},
	{A: []string{"nsaids"}, B: []string{"diuretics"}},
	{A: []string{"ace_inhibitors"}, B: []string{"nsaids"}},
	{A: []string{"statins"}, B: []string{"antidepressants_ssri"}},
}

// classPairDescriptions are matched against a fired rule's sides in both
// orders; the first entry that fits wins.
var classPairDescriptions = []struct {
	a, b string
	text string
}{
	{"anticoagulants", "antiplatelets", "Increased bleeding risk due to additive anticoagulant effects"},
	{"anticoagulants", "nsaids", "NSAIDs may increase bleeding risk and reduce anticoagulant effectiveness"},
	{"ace_inhibitors", "diuretics", "Risk of hypotension and hyperkalemia"},
	{"cyp450_inhibitors", "statins", "Increased statin levels may lead to muscle toxicity"},
	{"antidepressants_ssri", "opioids", "Risk of serotonin syndrome and CNS depression"},
	{"benzodiazepines", "opioids", "Dangerous CNS depression and respiratory depression"},
	{"beta_blockers", "diuretics", "Risk of hypotension and electrolyte imbalances"},
}

const defaultPairDescription = "Potential interaction between drug classes"

var severityRecommendations = map[domain.Severity]string{
	domain.SeverityHigh:     "Avoid combination if possible. If necessary, use with extreme caution and close monitoring.",
	domain.SeverityModerate: "Use caution. Monitor patient closely for adverse effects.",
	domain.SeverityLow:      "Monitor patient. Interaction is generally manageable with appropriate precautions.",
}

// Per-condition monitoring notes, keyed by the exact lower-cased condition.
var conditionMonitoring = map[string]string{
	"kidney disease": "Frequent renal function monitoring",
	"liver disease":  "Liver function monitoring",
	"heart disease":  "Cardiac function monitoring",
	"diabetes":       "Blood glucose monitoring",
}

// ageAdjustment describes dose scaling for one age bracket.
type ageAdjustment struct {
	WeightBased bool
	Factor      float64
	Narrative   string
	Warning     string
}

const referenceAdultWeightKg = 70.0

var ageAdjustments = map[domain.AgeCategory]ageAdjustment{
	domain.AgePediatric: {
		WeightBased: true,
		Factor:      1,
		Narrative:   "Pediatric patient (age %d): Weight-based dosing applied with safety margin",
		Warning:     "Pediatric dosing requires careful weight-based calculation",
	},
	domain.AgeAdult: {
		Factor:    1,
		Narrative: "Standard adult dosing applied",
	},
	domain.AgeGeriatric: {
		Factor:    0.75,
		Narrative: "Geriatric patient (age %d): Dose reduced for age-related physiological changes",
		Warning:   "Elderly patients may require dose reduction and closer monitoring",
	},
}

const (
	renalDoseFactor   = 0.7
	hepaticDoseFactor = 0.6
)

var reasonAdvantages = map[domain.Reason]string{
	domain.ReasonDrugInteraction: "Potentially fewer drug interactions",
	domain.ReasonAllergy:         "Different chemical structure - unlikely to cross-react",
	domain.ReasonSideEffects:     "Different side effect profile",
	domain.ReasonCost:            "More cost-effective option",
}

var costComparisons = map[string]string{
	"tier 1":  "Lower cost",
	"tier 2":  "Similar cost",
	"tier 3":  "Higher cost",
	"generic": "Lower cost",
	"brand":   "Higher cost",
}

// severityPenalty is the score deduction per finding or contraindication of
// a given severity for each scoring scheme.
// Other applies to any severity outside High, Moderate and Low.
type severityPenalty struct {
	High, Moderate, Low, Other int
}

func (p severityPenalty) For(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return p.High
	case domain.SeverityModerate:
		return p.Moderate
	case domain.SeverityLow:
		return p.Low
	default:
		return p.Other
	}
}

var (
	riskPenalty        = severityPenalty{High: 30, Moderate: 15, Low: 5}
	dosagePenalty      = severityPenalty{High: 25, Moderate: 15, Low: 5, Other: 5}
	suitabilityPenalty = severityPenalty{High: 30, Moderate: 15, Low: 5, Other: 5}
)
