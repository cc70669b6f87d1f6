package knowledge

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/metrics"
)

func TestInstrumentedStore_RecordsOutcomes(t *testing.T) {
	store := NewInstrumentedStore("instrumented-test", referenceStore(t))
	ctx := context.Background()

	_, err := store.Lookup(ctx, "Warfarin")
	require.NoError(t, err)
	_, err = store.Lookup(ctx, "Unobtainium")
	require.Error(t, err)
	_, err = store.InteractionLookup(ctx, "Warfarin", "Ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.StoreRequestsTotal.WithLabelValues("instrumented-test", "lookup", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.StoreRequestsTotal.WithLabelValues("instrumented-test", "lookup", metrics.OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.StoreRequestsTotal.WithLabelValues("instrumented-test", "interaction_lookup", metrics.OutcomeOK)))

	reqs, err := store.MonitoringRequirements(ctx, []string{"Ibuprofen"})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	assert.NoError(t, store.Health(ctx))
}
