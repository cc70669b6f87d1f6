package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/domain"
)

func TestEngines_CheckInteractions(t *testing.T) {
	engines := NewEngines(testLogger(), referenceStore(t))

	report := engines.CheckInteractions(context.Background(), []string{"Warfarin", " ibuprofen ", "warfarin", ""})

	assert.Equal(t, []string{"Warfarin", "ibuprofen"}, report.Drugs)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, domain.SeverityHigh, report.Findings[0].Severity)
	assert.Contains(t, report.Findings[0].Description, "bleeding")
	assert.Equal(t, 1, report.Risk.HighCount)
	assert.Equal(t, "Throughout treatment", report.Monitoring.Duration)
}

func TestEngines_CheckInteractionsEmpty(t *testing.T) {
	engines := NewEngines(testLogger(), referenceStore(t))

	report := engines.CheckInteractions(context.Background(), []string{"Metformin"})

	assert.NotNil(t, report.Findings)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 100, report.Risk.Score)
	assert.Equal(t, domain.RiskLow, report.Risk.Level)
}

func TestNewEnginesWithMatcher(t *testing.T) {
	engines := NewEnginesWithMatcher(testLogger(), referenceStore(t), WordMatcher{})

	assert.NotNil(t, engines.Interactions)
	assert.NotNil(t, engines.Dosage)
	assert.NotNil(t, engines.Alternatives)
	assert.NotNil(t, engines.Analyzer)
	assert.NotNil(t, engines.Store)
}
