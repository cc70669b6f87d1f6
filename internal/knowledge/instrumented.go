package knowledge

import (
	"context"
	"errors"
	"time"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

// InstrumentedStore records request counts and latency for every query made
// against the wrapped store.
type InstrumentedStore struct {
	inner domain.KnowledgeStore
	name  string
}

// NewInstrumentedStore labels the metrics of inner with name.
func NewInstrumentedStore(name string, inner domain.KnowledgeStore) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, name: name}
}

func (s *InstrumentedStore) observe(operation string, started time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		outcome = metrics.OutcomeUnavailable
	default:
		outcome = metrics.OutcomeError
	}
	metrics.StoreRequestsTotal.WithLabelValues(s.name, operation, outcome).Inc()
	metrics.StoreRequestDuration.WithLabelValues(s.name, operation).Observe(time.Since(started).Seconds())
}

func (s *InstrumentedStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	started := time.Now()
	rec, err := s.inner.Lookup(ctx, name)
	s.observe("lookup", started, err)
	return rec, err
}

func (s *InstrumentedStore) Search(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	started := time.Now()
	out, err := s.inner.Search(ctx, term, limit)
	s.observe("search", started, err)
	return out, err
}

func (s *InstrumentedStore) InteractionLookup(ctx context.Context, nameA, nameB string) (*domain.InteractionFinding, error) {
	started := time.Now()
	f, err := s.inner.InteractionLookup(ctx, nameA, nameB)
	s.observe("interaction_lookup", started, err)
	return f, err
}

func (s *InstrumentedStore) ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]domain.Contraindication, error) {
	started := time.Now()
	out, err := s.inner.ContraindicationsFor(ctx, name, conditions, allergies)
	s.observe("contraindications", started, err)
	return out, err
}

func (s *InstrumentedStore) TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]domain.DrugSummary, error) {
	started := time.Now()
	out, err := s.inner.TherapeuticAlternatives(ctx, name, therapeuticClass)
	s.observe("therapeutic_alternatives", started, err)
	return out, err
}

// MonitoringRequirements passes through to the wrapped store when it is a
// domain.MonitoringSource.
func (s *InstrumentedStore) MonitoringRequirements(ctx context.Context, names []string) (map[string]domain.MonitoringRequirement, error) {
	source, ok := s.inner.(domain.MonitoringSource)
	if !ok {
		return map[string]domain.MonitoringRequirement{}, nil
	}
	started := time.Now()
	out, err := source.MonitoringRequirements(ctx, names)
	s.observe("monitoring", started, err)
	return out, err
}

func (s *InstrumentedStore) Health(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
