package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
)

// failingStore answers every lookup with err and counts the calls it sees.
type failingStore struct {
	domain.KnowledgeStore
	err   error
	calls int
}

func (f *failingStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	f.calls++
	return nil, f.err
}

func breakerConfig() domain.BreakerConfig {
	return domain.BreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

func TestResilientStore_OpensAfterFailures(t *testing.T) {
	inner := &failingStore{err: errors.New("connection refused")}
	store := NewResilientStore(testLogger(), "breaker-open", inner, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Lookup(ctx, "Warfarin")
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrStoreUnavailable))
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(metrics.StoreBreakerState.WithLabelValues("breaker-open")))

	_, err := store.Lookup(ctx, "Warfarin")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Equal(t, 3, inner.calls, "open breaker must not reach the store")

	assert.True(t, errors.Is(store.Health(ctx), domain.ErrStoreUnavailable))
}

func TestResilientStore_NotFoundIsNotAFailure(t *testing.T) {
	inner := &failingStore{err: fmt.Errorf("drug %q: %w", "x", domain.ErrNotFound)}
	store := NewResilientStore(testLogger(), "breaker-notfound", inner, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := store.Lookup(ctx, "x")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
	assert.Equal(t, 10, inner.calls)
}

func TestResilientStore_PassesThrough(t *testing.T) {
	mem := referenceStore(t)
	store := NewResilientStore(testLogger(), "breaker-pass", mem, breakerConfig())
	ctx := context.Background()

	rec, err := store.Lookup(ctx, "Warfarin")
	require.NoError(t, err)
	assert.Equal(t, "Warfarin", rec.Name)

	results, err := store.Search(ctx, "met", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	finding, err := store.InteractionLookup(ctx, "Warfarin", "Ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityHigh, finding.Severity)

	ci, err := store.ContraindicationsFor(ctx, "Warfarin", []string{"Pregnancy"}, nil)
	require.NoError(t, err)
	assert.Len(t, ci, 1)

	alts, err := store.TherapeuticAlternatives(ctx, "Warfarin", "")
	require.NoError(t, err)
	assert.Empty(t, alts)

	reqs, err := store.MonitoringRequirements(ctx, []string{"Warfarin"})
	require.NoError(t, err)
	assert.Contains(t, reqs, "Warfarin")

	assert.NoError(t, store.Health(ctx))
}
