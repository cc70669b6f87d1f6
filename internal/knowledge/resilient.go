package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

// ResilientStore guards a KnowledgeStore with a circuit breaker. While the
// breaker is open every call fails fast with domain.ErrStoreUnavailable,
// which the engines treat like any other unavailable lookup. ErrNotFound and
// caller cancellation do not count as failures.
type ResilientStore struct {
	inner   domain.KnowledgeStore
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientStore wraps inner using the breaker settings in cfg.
func NewResilientStore(logger *logrus.Logger, name string, inner domain.KnowledgeStore, cfg domain.BreakerConfig) *ResilientStore {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.StoreBreakerState.WithLabelValues(name).Set(float64(to))
			logger.WithFields(logrus.Fields{
				"store": name,
				"from":  from.String(),
				"to":    to.String(),
			}).Warn("Knowledge store circuit breaker changed state")
		},
	}
	metrics.StoreBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &ResilientStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// State reports the current breaker state.
func (r *ResilientStore) State() gobreaker.State {
	return r.breaker.State()
}

func (r *ResilientStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit breaker %s: %v", domain.ErrStoreUnavailable, r.breaker.Name(), err)
	}
	return result, err
}

// Lookup implements domain.KnowledgeStore.
func (r *ResilientStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.Lookup(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.DrugRecord), nil
}

// Search implements domain.KnowledgeStore.
func (r *ResilientStore) Search(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.Search(ctx, term, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.DrugSummary), nil
}

// InteractionLookup implements domain.KnowledgeStore.
func (r *ResilientStore) InteractionLookup(ctx context.Context, nameA, nameB string) (*domain.InteractionFinding, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.InteractionLookup(ctx, nameA, nameB)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.InteractionFinding), nil
}

// ContraindicationsFor implements domain.KnowledgeStore.
func (r *ResilientStore) ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]domain.Contraindication, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.ContraindicationsFor(ctx, name, conditions, allergies)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Contraindication), nil
}

// TherapeuticAlternatives implements domain.KnowledgeStore.
func (r *ResilientStore) TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]domain.DrugSummary, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.TherapeuticAlternatives(ctx, name, therapeuticClass)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.DrugSummary), nil
}

// MonitoringRequirements implements domain.MonitoringSource when the wrapped
// store does.
func (r *ResilientStore) MonitoringRequirements(ctx context.Context, names []string) (map[string]domain.MonitoringRequirement, error) {
	source, ok := r.inner.(domain.MonitoringSource)
	if !ok {
		return map[string]domain.MonitoringRequirement{}, nil
	}
	result, err := r.execute(func() (interface{}, error) {
		return source.MonitoringRequirements(ctx, names)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]domain.MonitoringRequirement), nil
}

// Health reports the wrapped store's health, or ErrStoreUnavailable while
// the breaker is open.
func (r *ResilientStore) Health(ctx context.Context) error {
	if r.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit breaker %s is open", domain.ErrStoreUnavailable, r.breaker.Name())
	}
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
