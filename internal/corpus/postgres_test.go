package corpus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/drug-repurposing-engine/internal/database"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a default test password if random generation fails
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestWarehouse(t *testing.T) (*PostgresWarehouse, func()) {
	ctx := context.Background()

	testPassword := generateTestPassword()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("corpusdb"),
		postgres.WithUsername("corpususer"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Skipping warehouse test, could not start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	databaseURL := "postgres://corpususer:" + testPassword + "@" + host + ":" + port.Port() + "/corpusdb?sslmode=disable"

	// Apply the corpus schema
	migrationRunner, err := database.NewMigrationRunner(databaseURL, logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := database.NewConnection(ctx, databaseURL, 10, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	warehouse := NewPostgresWarehouse(db.Pool, logger)

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return warehouse, cleanup
}

func TestPostgresWarehouse_SnapshotAndLoad(t *testing.T) {
	warehouse, cleanup := setupTestWarehouse(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)

	meta, err := warehouse.CorpusMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.DrugCount)
	assert.WithinDuration(t, time.Now().UTC(), meta.SnapshotAt, time.Minute)
}

func TestPostgresWarehouse_SnapshotReplacesPrevious(t *testing.T) {
	warehouse, cleanup := setupTestWarehouse(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()[:1]))

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, "NILOTINIB", drugs[0].Name)

	meta, err := warehouse.CorpusMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 1, meta.DrugCount)
}

func TestPostgresWarehouse_EmptyBeforeFirstSnapshot(t *testing.T) {
	warehouse, cleanup := setupTestWarehouse(t)
	defer cleanup()

	ctx := context.Background()

	meta, err := warehouse.CorpusMeta(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Empty(t, drugs)
}
