package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/knowledge"
)

// MockKnowledgeStore is a mock implementation of the KnowledgeStore interface
type MockKnowledgeStore struct {
	mock.Mock
}

func (m *MockKnowledgeStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DrugRecord), args.Error(1)
}

func (m *MockKnowledgeStore) Search(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DrugSummary), args.Error(1)
}

func (m *MockKnowledgeStore) InteractionLookup(ctx context.Context, nameA, nameB string) (*domain.InteractionFinding, error) {
	args := m.Called(ctx, nameA, nameB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InteractionFinding), args.Error(1)
}

func (m *MockKnowledgeStore) ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]domain.Contraindication, error) {
	args := m.Called(ctx, name, conditions, allergies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Contraindication), args.Error(1)
}

func (m *MockKnowledgeStore) TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]domain.DrugSummary, error) {
	args := m.Called(ctx, name, therapeuticClass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DrugSummary), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func referenceStore(t *testing.T) *knowledge.MemoryStore {
	t.Helper()
	store, err := knowledge.NewReferenceStore(testLogger())
	require.NoError(t, err)
	return store
}

func datasetStore(t *testing.T, drugs []domain.DrugRecord, contraindications []knowledge.ContraindicationRecord) *knowledge.MemoryStore {
	t.Helper()
	store, err := knowledge.NewMemoryStore(testLogger(), &knowledge.Dataset{
		Version:           "test",
		Drugs:             drugs,
		Contraindications: contraindications,
	})
	require.NoError(t, err)
	return store
}

func adult(t *testing.T, conditions, allergies []string) *domain.PatientProfile {
	t.Helper()
	p, err := domain.NewPatientProfile("Adult", 45, 70, conditions, allergies)
	require.NoError(t, err)
	return p
}
