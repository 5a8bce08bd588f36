package history

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestDB returns a database connection for testing.
// Skip test if TEST_DATABASE_URL is not set.
func getTestDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	require.NoError(t, createPostgresSchema(db))

	// Clean up before test
	_, err = db.Exec("DELETE FROM analyses")
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM validations")
	require.NoError(t, err)

	return db
}

func TestPostgresStore_SaveAnalysis(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	rec := sampleAnalysis()

	err = store.SaveAnalysis(ctx, rec)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestPostgresStore_SaveValidation(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	rec := &ValidationRecord{
		DrugName:       "NILOTINIB",
		DiseaseName:    "Parkinson disease",
		RiskLevel:      "LOW",
		EvidenceBlocks: 4,
		Outcome:        OutcomeCompleted,
	}

	err = store.SaveValidation(ctx, rec)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
}

func TestPostgresStore_RecentAnalyses(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		rec := sampleAnalysis()
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveAnalysis(ctx, rec))
	}

	list, err := store.RecentAnalyses(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = store.RecentAnalyses(ctx, 3, 3)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPostgresStore_CountAnalyses(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	ctx := context.Background()

	count, err := store.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveAnalysis(ctx, sampleAnalysis()))
	}

	count, err = store.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestNewPostgresStore_NilConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}
