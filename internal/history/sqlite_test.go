package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	return store
}

func sampleAnalysis() *AnalysisRecord {
	return &AnalysisRecord{
		DiseaseQuery:   "Parkinson's",
		DiseaseName:    "Parkinson disease",
		DiseaseID:      "EFO_0002508",
		MinScore:       0.2,
		MaxResults:     20,
		CandidateCount: 7,
		FilteredCount:  2,
		TopDrug:        "NILOTINIB",
		TopScore:       0.3253,
		Outcome:        OutcomeCompleted,
		DurationMS:     412,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAnalysis(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := sampleAnalysis()

	err := store.SaveAnalysis(ctx, rec)

	require.NoError(t, err)
	assert.NotZero(t, rec.ID, "ID should be assigned")
	assert.False(t, rec.CreatedAt.IsZero(), "CreatedAt should be set")
}

func TestSQLiteStore_SaveAnalysis_FailedOutcome(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &AnalysisRecord{
		DiseaseQuery: "Parkinsonn",
		Outcome:      OutcomeFailed,
		DurationMS:   35,
	}

	err := store.SaveAnalysis(ctx, rec)
	require.NoError(t, err)

	list, err := store.RecentAnalyses(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, OutcomeFailed, list[0].Outcome)
	assert.Empty(t, list[0].DiseaseName)
	assert.Empty(t, list[0].TopDrug)
}

func TestSQLiteStore_SaveValidation(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &ValidationRecord{
		DrugName:       "NILOTINIB",
		DiseaseName:    "Parkinson disease",
		RiskLevel:      "LOW",
		EvidenceBlocks: 4,
		Outcome:        OutcomeCompleted,
		DurationMS:     980,
	}

	err := store.SaveValidation(ctx, rec)

	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestSQLiteStore_RecentAnalyses_NewestFirst(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	queries := []string{"first", "second", "third"}
	base := time.Now().Add(-time.Minute)

	for i, q := range queries {
		rec := sampleAnalysis()
		rec.DiseaseQuery = q
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveAnalysis(ctx, rec))
	}

	list, err := store.RecentAnalyses(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].DiseaseQuery)
	assert.Equal(t, "second", list[1].DiseaseQuery)
	assert.Equal(t, "first", list[2].DiseaseQuery)
}

func TestSQLiteStore_RecentAnalyses_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		rec := sampleAnalysis()
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveAnalysis(ctx, rec))
	}

	page1, err := store.RecentAnalyses(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := store.RecentAnalyses(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	page3, err := store.RecentAnalyses(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestSQLiteStore_RecentValidations(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	drugs := []string{"NILOTINIB", "AMBROXOL"}
	for i, d := range drugs {
		rec := &ValidationRecord{
			DrugName:    d,
			DiseaseName: "Parkinson disease",
			RiskLevel:   "MEDIUM",
			Outcome:     OutcomeCompleted,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveValidation(ctx, rec))
	}

	list, err := store.RecentValidations(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AMBROXOL", list[0].DrugName)
	assert.Equal(t, "NILOTINIB", list[1].DrugName)
}

func TestSQLiteStore_CountAnalyses(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

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

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveAnalysis(ctx, sampleAnalysis()))
	require.NoError(t, store.SaveValidation(ctx, &ValidationRecord{
		DrugName:       "AMBROXOL",
		DiseaseName:    "Gaucher disease",
		RiskLevel:      "LOW",
		EvidenceBlocks: 3,
		Outcome:        OutcomeCompleted,
	}))

	var buf bytes.Buffer
	err := store.ExportJSON(ctx, &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"version"`)
	assert.Contains(t, buf.String(), "Parkinson disease")
	assert.Contains(t, buf.String(), "NILOTINIB")
	assert.Contains(t, buf.String(), "AMBROXOL")
	assert.Contains(t, buf.String(), `"analyses"`)
	assert.Contains(t, buf.String(), `"validations"`)
}
