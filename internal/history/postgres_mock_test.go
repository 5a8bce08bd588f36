package history

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockStore builds a PostgresStore on a sqlmock connection, covering
// the ping and schema statements issued by the constructor.
func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	return store, mock
}

func TestPostgresStore_SaveAnalysis_Mock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery("INSERT INTO analyses").
		WithArgs("Parkinson's", "Parkinson disease", "EFO_0002508",
			0.2, 20, 7, 2, "NILOTINIB", 0.3253, "", OutcomeCompleted, int64(412), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	rec := sampleAnalysis()
	err := store.SaveAnalysis(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveValidation_Mock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery("INSERT INTO validations").
		WithArgs("NILOTINIB", "Parkinson disease", "LOW", 4, OutcomeCompleted, int64(980), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	rec := &ValidationRecord{
		DrugName:       "NILOTINIB",
		DiseaseName:    "Parkinson disease",
		RiskLevel:      "LOW",
		EvidenceBlocks: 4,
		Outcome:        OutcomeCompleted,
		DurationMS:     980,
	}
	err := store.SaveValidation(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecentAnalyses_Mock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "disease_query", "disease_name", "disease_id",
		"min_score", "max_results", "candidate_count", "filtered_count",
		"top_drug", "top_score", "degraded", "outcome", "duration_ms", "created_at",
	}).
		AddRow(int64(2), "Wilson disease", "Wilson disease", "EFO_0004143",
			0.2, 20, 1, 0, "PENICILLAMINE", 0.41, "", OutcomeCompleted, int64(98), now).
		AddRow(int64(1), "Parkinson's", "Parkinson disease", "EFO_0002508",
			0.2, 20, 7, 2, "NILOTINIB", 0.3253, "DGIdb", OutcomeCompleted, int64(412), now.Add(-time.Minute))

	mock.ExpectQuery("(?s)SELECT (.+) FROM analyses").
		WithArgs(10, 0).
		WillReturnRows(rows)

	result, err := store.RecentAnalyses(context.Background(), 10, 0)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(2), result[0].ID)
	assert.Equal(t, "PENICILLAMINE", result[0].TopDrug)
	assert.Equal(t, "NILOTINIB", result[1].TopDrug)
	assert.Equal(t, "DGIdb", result[1].Degraded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAnalyses_Mock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := store.CountAnalyses(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAnalysis_QueryError_Mock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery("INSERT INTO analyses").
		WillReturnError(errors.New("connection reset"))

	err := store.SaveAnalysis(context.Background(), sampleAnalysis())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExportJSON_Mock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	analysisRows := sqlmock.NewRows([]string{
		"id", "disease_query", "disease_name", "disease_id",
		"min_score", "max_results", "candidate_count", "filtered_count",
		"top_drug", "top_score", "degraded", "outcome", "duration_ms", "created_at",
	}).
		AddRow(int64(1), "Parkinson's", "Parkinson disease", "EFO_0002508",
			0.2, 20, 7, 2, "NILOTINIB", 0.3253, "", OutcomeCompleted, int64(412), time.Now())

	validationRows := sqlmock.NewRows([]string{
		"id", "drug_name", "disease_name", "risk_level",
		"evidence_blocks", "outcome", "duration_ms", "created_at",
	}).
		AddRow(int64(1), "AMBROXOL", "Gaucher disease", "MEDIUM", 2, OutcomeCompleted, int64(640), time.Now())

	mock.ExpectQuery("(?s)SELECT (.+) FROM analyses").WillReturnRows(analysisRows)
	mock.ExpectQuery("(?s)SELECT (.+) FROM validations").WillReturnRows(validationRows)

	var buf bytes.Buffer
	err := store.ExportJSON(context.Background(), &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "NILOTINIB")
	assert.Contains(t, buf.String(), "AMBROXOL")
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
