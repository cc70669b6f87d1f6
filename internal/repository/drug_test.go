package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rx-safety-engine/internal/database"
	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/knowledge"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

// setupTestStore starts Postgres, applies the migrations (schema and
// reference seed) and returns a store over the pool.
func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres container test in short mode")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    5,
		MinConns:    1,
		MaxConnLife: time.Hour,
		MaxConnIdle: 30 * time.Minute,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	migrator, err := database.NewMigrator(config.URL(), migrationsPath, logger)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	db, err := database.NewConnection(ctx, config, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewPostgresStore(db.Pool, logger)
}

// TestPostgresStore runs every case against one container, comparing the
// Postgres results with the in-memory reference store.
func TestPostgresStore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	reference, err := knowledge.NewReferenceStore(logrus.New())
	require.NoError(t, err)

	t.Run("Count", func(t *testing.T) {
		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), count)
	})

	t.Run("Lookup", func(t *testing.T) {
		for _, name := range []string{"Lisinopril", "metformin", "Warfarin", "acetaminophen"} {
			got, err := store.Lookup(ctx, name)
			require.NoError(t, err, name)
			want, err := reference.Lookup(ctx, name)
			require.NoError(t, err, name)
			assert.Equal(t, want, got, name)
		}
	})

	t.Run("LookupNotFound", func(t *testing.T) {
		_, err := store.Lookup(ctx, "Unobtainium")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("Search", func(t *testing.T) {
		for _, term := range []string{"met", "AM", "pril", "in", "%", "zzz"} {
			got, err := store.Search(ctx, term, 10)
			require.NoError(t, err, term)
			want, err := reference.Search(ctx, term, 10)
			require.NoError(t, err, term)
			assert.Equal(t, want, got, term)
		}
	})

	t.Run("SearchLimit", func(t *testing.T) {
		got, err := store.Search(ctx, "i", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("InteractionLookupIsSymmetric", func(t *testing.T) {
		ab, err := store.InteractionLookup(ctx, "Warfarin", "Ibuprofen")
		require.NoError(t, err)
		ba, err := store.InteractionLookup(ctx, "ibuprofen", "warfarin")
		require.NoError(t, err)

		assert.Equal(t, domain.SeverityHigh, ab.Severity)
		assert.Equal(t, ab.Severity, ba.Severity)
		assert.Equal(t, ab.Description, ba.Description)
		assert.Equal(t, "ibuprofen", ba.DrugA)
		assert.Equal(t, domain.SourceStore, ab.Source)

		want, err := reference.InteractionLookup(ctx, "Warfarin", "Ibuprofen")
		require.NoError(t, err)
		assert.Equal(t, want, ab)
	})

	t.Run("InteractionNotFound", func(t *testing.T) {
		_, err := store.InteractionLookup(ctx, "Amoxicillin", "Omeprazole")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("ContraindicationsFor", func(t *testing.T) {
		conditions := []string{"pregnancy", "Angioedema History", "Hypertension"}
		allergies := []string{"lisino"}

		got, err := store.ContraindicationsFor(ctx, "Lisinopril", conditions, allergies)
		require.NoError(t, err)
		want, err := reference.ContraindicationsFor(ctx, "Lisinopril", conditions, allergies)
		require.NoError(t, err)

		assert.ElementsMatch(t, want, got)
		assert.Len(t, got, 3)
	})

	t.Run("TherapeuticAlternatives", func(t *testing.T) {
		got, err := store.TherapeuticAlternatives(ctx, "Amoxicillin", "")
		require.NoError(t, err)
		want, err := reference.TherapeuticAlternatives(ctx, "Amoxicillin", "")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		none, err := store.TherapeuticAlternatives(ctx, "Unobtainium", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("MonitoringRequirements", func(t *testing.T) {
		names := []string{"Warfarin", "metformin", "Unobtainium"}
		got, err := store.MonitoringRequirements(ctx, names)
		require.NoError(t, err)
		want, err := reference.MonitoringRequirements(ctx, names)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Health", func(t *testing.T) {
		assert.NoError(t, store.Health(ctx))
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%`, escapeLike("50%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\x`, escapeLike(`c:\x`))
}
