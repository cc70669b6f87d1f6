// Package knowledge provides the in-process KnowledgeStore implementations:
// an immutable in-memory snapshot with hot reload, an embedded SQLite store,
// and decorators adding a circuit breaker and Prometheus instrumentation to
// any store.
package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rx-safety-engine/internal/domain"
)

//go:embed data/reference.json
var referenceJSON []byte

// Dataset is the portable form of the knowledge base. It seeds every store
// and is the on-disk format watched for hot reload.
type Dataset struct {
	Version           string                   `json:"version"`
	Drugs             []domain.DrugRecord      `json:"drugs"`
	Interactions      []InteractionRecord      `json:"interactions"`
	Contraindications []ContraindicationRecord `json:"contraindications"`
}

// InteractionRecord is a curated interaction between two drugs, named by
// drug name.
type InteractionRecord struct {
	DrugA                string          `json:"drug_a"`
	DrugB                string          `json:"drug_b"`
	Severity             domain.Severity `json:"severity"`
	Mechanism            string          `json:"mechanism"`
	Description          string          `json:"description"`
	ClinicalSignificance string          `json:"clinical_significance,omitempty"`
	Recommendation       string          `json:"recommendation"`
	MonitoringRequired   bool            `json:"monitoring_required"`
}

// Finding converts the record into an interaction finding for the given
// caller-supplied names.
func (r InteractionRecord) Finding(a, b string) *domain.InteractionFinding {
	return &domain.InteractionFinding{
		DrugA:                a,
		DrugB:                b,
		Severity:             r.Severity,
		Mechanism:            r.Mechanism,
		Description:          r.Description,
		ClinicalSignificance: r.ClinicalSignificance,
		Recommendation:       r.Recommendation,
		MonitoringRequired:   r.MonitoringRequired,
		Source:               domain.SourceStore,
	}
}

// ContraindicationRecord ties a condition label to a drug.
type ContraindicationRecord struct {
	Drug     string          `json:"drug"`
	Label    string          `json:"label"`
	Severity domain.Severity `json:"severity"`
	Reason   string          `json:"reason"`
}

// ReferenceDataset returns a fresh copy of the embedded reference dataset.
func ReferenceDataset() (*Dataset, error) {
	return ParseDataset(referenceJSON)
}

// LoadDataset reads and validates a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes and validates a JSON dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks that drug names are present and unique, that severities
// are known, and that interactions and contraindications reference drugs in
// the dataset.
func (d *Dataset) Validate() error {
	if len(d.Drugs) == 0 {
		return fmt.Errorf("dataset has no drugs")
	}

	names := make(map[string]struct{}, len(d.Drugs))
	for i, drug := range d.Drugs {
		key := nameKey(drug.Name)
		if key == "" {
			return fmt.Errorf("drug %d has no name", i)
		}
		if _, dup := names[key]; dup {
			return fmt.Errorf("duplicate drug %q", drug.Name)
		}
		if strings.TrimSpace(drug.StandardDosage) == "" {
			return fmt.Errorf("drug %q has no standard dosage", drug.Name)
		}
		names[key] = struct{}{}
	}

	for i, ir := range d.Interactions {
		if !ir.Severity.IsValid() {
			return fmt.Errorf("interaction %d: %w: %q", i, domain.ErrInvalidSeverity, ir.Severity)
		}
		for _, n := range []string{ir.DrugA, ir.DrugB} {
			if _, ok := names[nameKey(n)]; !ok {
				return fmt.Errorf("interaction %d references unknown drug %q", i, n)
			}
		}
		if nameKey(ir.DrugA) == nameKey(ir.DrugB) {
			return fmt.Errorf("interaction %d pairs %q with itself", i, ir.DrugA)
		}
	}

	for i, cr := range d.Contraindications {
		if !cr.Severity.IsValid() || cr.Severity == domain.SeverityMinimal {
			return fmt.Errorf("contraindication %d: %w: %q", i, domain.ErrInvalidSeverity, cr.Severity)
		}
		if _, ok := names[nameKey(cr.Drug)]; !ok {
			return fmt.Errorf("contraindication %d references unknown drug %q", i, cr.Drug)
		}
		if strings.TrimSpace(cr.Label) == "" {
			return fmt.Errorf("contraindication %d has no label", i)
		}
	}

	return nil
}

// nameKey is the lookup key for drug names in the dataset and its snapshots.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
