package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

const (
	defaultSearchLimit      = 10
	maxTherapeuticAlternate = 10
)

// MemoryStore serves a Dataset from an immutable in-memory snapshot. Reads
// never lock; Reload builds a new snapshot and swaps it in atomically, so a
// reader sees either the old or the new dataset in full.
type MemoryStore struct {
	logger   *logrus.Logger
	snapshot atomic.Pointer[snapshot]
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

type snapshot struct {
	version   string
	drugs     []*domain.DrugRecord
	byName    map[string]*domain.DrugRecord
	pairs     map[pairKey]InteractionRecord
	contraind map[string][]ContraindicationRecord
}

// NewMemoryStore creates a store serving ds.
func NewMemoryStore(logger *logrus.Logger, ds *Dataset) (*MemoryStore, error) {
	s := &MemoryStore{logger: logger}
	if err := s.Reload(ds); err != nil {
		return nil, err
	}
	return s, nil
}

// NewReferenceStore creates a store serving the embedded reference dataset.
func NewReferenceStore(logger *logrus.Logger) (*MemoryStore, error) {
	ds, err := ReferenceDataset()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference dataset: %w", err)
	}
	return NewMemoryStore(logger, ds)
}

// Reload validates ds and replaces the served snapshot.
func (s *MemoryStore) Reload(ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("nil dataset")
	}
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	snap := buildSnapshot(ds)
	s.snapshot.Store(snap)
	metrics.DatasetDrugs.Set(float64(len(snap.drugs)))

	s.logger.WithFields(logrus.Fields{
		"version":           snap.version,
		"drugs":             len(snap.drugs),
		"interactions":      len(snap.pairs),
		"contraindications": len(ds.Contraindications),
	}).Info("Knowledge dataset loaded")
	return nil
}

// Version returns the version of the served dataset.
func (s *MemoryStore) Version() string {
	return s.snapshot.Load().version
}

func buildSnapshot(ds *Dataset) *snapshot {
	snap := &snapshot{
		version:   ds.Version,
		drugs:     make([]*domain.DrugRecord, 0, len(ds.Drugs)),
		byName:    make(map[string]*domain.DrugRecord, len(ds.Drugs)*2),
		pairs:     make(map[pairKey]InteractionRecord, len(ds.Interactions)),
		contraind: make(map[string][]ContraindicationRecord),
	}

	for i := range ds.Drugs {
		rec := ds.Drugs[i]
		rec.Name = strings.TrimSpace(rec.Name)
		rec.Indications = append([]string(nil), rec.Indications...)
		snap.drugs = append(snap.drugs, &rec)
		snap.byName[nameKey(rec.Name)] = &rec
	}
	// Generic names resolve only where no drug carries that name.
	for _, rec := range snap.drugs {
		key := nameKey(rec.GenericName)
		if key == "" {
			continue
		}
		if _, taken := snap.byName[key]; !taken {
			snap.byName[key] = rec
		}
	}

	// Unresolved references are skipped; Validate reports them on load.
	for _, ir := range ds.Interactions {
		a, okA := snap.byName[nameKey(ir.DrugA)]
		b, okB := snap.byName[nameKey(ir.DrugB)]
		if !okA || !okB {
			continue
		}
		snap.pairs[newPairKey(a.Name, b.Name)] = ir
	}
	for _, cr := range ds.Contraindications {
		rec, ok := snap.byName[nameKey(cr.Drug)]
		if !ok {
			continue
		}
		key := nameKey(rec.Name)
		snap.contraind[key] = append(snap.contraind[key], cr)
	}

	sort.Slice(snap.drugs, func(i, j int) bool { return snap.drugs[i].Name < snap.drugs[j].Name })
	return snap
}

func (snap *snapshot) resolve(name string) (*domain.DrugRecord, bool) {
	rec, ok := snap.byName[nameKey(name)]
	return rec, ok
}

// Lookup implements domain.KnowledgeStore.
func (s *MemoryStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	rec, ok := s.snapshot.Load().resolve(name)
	if !ok {
		return nil, fmt.Errorf("drug %q: %w", name, domain.ErrNotFound)
	}
	out := *rec
	return &out, nil
}

// Search implements domain.KnowledgeStore.
func (s *MemoryStore) Search(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	term = strings.ToLower(strings.TrimSpace(term))

	type hit struct {
		tier int
		rec  *domain.DrugRecord
	}
	var hits []hit
	for _, rec := range s.snapshot.Load().drugs {
		if tier, ok := SearchTier(rec.Name, rec.GenericName, term); ok {
			hits = append(hits, hit{tier, rec})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].tier != hits[j].tier {
			return hits[i].tier < hits[j].tier
		}
		return hits[i].rec.Name < hits[j].rec.Name
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.DrugSummary, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.rec.Summary())
	}
	return out, nil
}

// SearchTier ranks a drug against a lower-cased search term: 1 exact name,
// 2 exact generic name, 3 name prefix, 4 substring of either. ok is false
// when the drug does not match at all.
func SearchTier(name, generic, term string) (tier int, ok bool) {
	n, g := strings.ToLower(name), strings.ToLower(generic)
	switch {
	case n == term:
		return 1, true
	case g == term && g != "":
		return 2, true
	case strings.HasPrefix(n, term):
		return 3, true
	case strings.Contains(n, term) || strings.Contains(g, term):
		return 4, true
	}
	return 0, false
}

// InteractionLookup implements domain.KnowledgeStore.
func (s *MemoryStore) InteractionLookup(ctx context.Context, nameA, nameB string) (*domain.InteractionFinding, error) {
	snap := s.snapshot.Load()
	a, okA := snap.resolve(nameA)
	b, okB := snap.resolve(nameB)
	if !okA || !okB {
		return nil, fmt.Errorf("interaction %s/%s: %w", nameA, nameB, domain.ErrNotFound)
	}
	ir, ok := snap.pairs[newPairKey(a.Name, b.Name)]
	if !ok {
		return nil, fmt.Errorf("interaction %s/%s: %w", nameA, nameB, domain.ErrNotFound)
	}
	return ir.Finding(nameA, nameB), nil
}

// ContraindicationsFor implements domain.KnowledgeStore.
func (s *MemoryStore) ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]domain.Contraindication, error) {
	var out []domain.Contraindication

	snap := s.snapshot.Load()
	if rec, ok := snap.resolve(name); ok {
		wanted := lowerSet(conditions)
		for _, cr := range snap.contraind[strings.ToLower(rec.Name)] {
			if _, hit := wanted[strings.ToLower(cr.Label)]; hit {
				out = append(out, domain.Contraindication{
					Kind:     domain.KindCondition,
					Label:    cr.Label,
					Severity: cr.Severity,
					Reason:   cr.Reason,
				})
			}
		}
	}

	return append(out, domain.AllergyContraindications(name, allergies, nil)...), nil
}

// TherapeuticAlternatives implements domain.KnowledgeStore.
func (s *MemoryStore) TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]domain.DrugSummary, error) {
	snap := s.snapshot.Load()
	if strings.TrimSpace(therapeuticClass) == "" {
		rec, ok := snap.resolve(name)
		if !ok {
			return []domain.DrugSummary{}, nil
		}
		therapeuticClass = rec.TherapeuticClass
	}

	var matches []*domain.DrugRecord
	for _, rec := range snap.drugs {
		if strings.EqualFold(rec.TherapeuticClass, therapeuticClass) && !rec.Matches(name) {
			matches = append(matches, rec)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CostTier != matches[j].CostTier {
			return matches[i].CostTier < matches[j].CostTier
		}
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > maxTherapeuticAlternate {
		matches = matches[:maxTherapeuticAlternate]
	}

	out := make([]domain.DrugSummary, 0, len(matches))
	for _, rec := range matches {
		out = append(out, rec.Summary())
	}
	return out, nil
}

// MonitoringRequirements implements domain.MonitoringSource.
func (s *MemoryStore) MonitoringRequirements(ctx context.Context, names []string) (map[string]domain.MonitoringRequirement, error) {
	snap := s.snapshot.Load()
	out := make(map[string]domain.MonitoringRequirement)
	for _, n := range names {
		if rec, ok := snap.resolve(n); ok {
			out[rec.Name] = domain.MonitoringRequirement{
				Parameters:     domain.Value(rec.MonitoringParameters),
				AdverseEffects: domain.Value(rec.SeriousAdverseEffects),
			}
		}
	}
	return out, nil
}

// Health implements domain.HealthChecker.
func (s *MemoryStore) Health(ctx context.Context) error {
	if s.snapshot.Load() == nil {
		return fmt.Errorf("no dataset loaded: %w", domain.ErrStoreUnavailable)
	}
	return nil
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = struct{}{}
		}
	}
	return set
}
