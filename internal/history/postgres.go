package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store on an existing
// connection. The schema is created if it does not exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id BIGSERIAL PRIMARY KEY,
		disease_query TEXT NOT NULL,
		disease_name TEXT DEFAULT '',
		disease_id TEXT DEFAULT '',
		min_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_results INTEGER NOT NULL DEFAULT 0,
		candidate_count INTEGER NOT NULL DEFAULT 0,
		filtered_count INTEGER NOT NULL DEFAULT 0,
		top_drug TEXT DEFAULT '',
		top_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		degraded TEXT DEFAULT '',
		outcome TEXT NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS validations (
		id BIGSERIAL PRIMARY KEY,
		drug_name TEXT NOT NULL,
		disease_name TEXT NOT NULL,
		risk_level TEXT DEFAULT '',
		evidence_blocks INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_disease_name ON analyses(disease_name);
	CREATE INDEX IF NOT EXISTS idx_validations_created_at ON validations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveAnalysis appends one analysis record.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO analyses (
			disease_query, disease_name, disease_id,
			min_score, max_results, candidate_count, filtered_count,
			top_drug, top_score, degraded, outcome, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		rec.DiseaseQuery,
		rec.DiseaseName,
		rec.DiseaseID,
		rec.MinScore,
		rec.MaxResults,
		rec.CandidateCount,
		rec.FilteredCount,
		rec.TopDrug,
		rec.TopScore,
		rec.Degraded,
		rec.Outcome,
		rec.DurationMS,
		rec.CreatedAt,
	).Scan(&rec.ID)

	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// SaveValidation appends one validation record.
func (s *PostgresStore) SaveValidation(ctx context.Context, rec *ValidationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO validations (
			drug_name, disease_name, risk_level,
			evidence_blocks, outcome, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		rec.DrugName,
		rec.DiseaseName,
		rec.RiskLevel,
		rec.EvidenceBlocks,
		rec.Outcome,
		rec.DurationMS,
		rec.CreatedAt,
	).Scan(&rec.ID)

	if err != nil {
		return fmt.Errorf("failed to insert validation: %w", err)
	}
	return nil
}

// RecentAnalyses returns analysis records newest first, with pagination.
func (s *PostgresStore) RecentAnalyses(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error) {
	query := `
		SELECT id, disease_query, disease_name, disease_id,
			min_score, max_results, candidate_count, filtered_count,
			top_drug, top_score, degraded, outcome, duration_ms, created_at
		FROM analyses
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var result []*AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// RecentValidations returns validation records newest first, with pagination.
func (s *PostgresStore) RecentValidations(ctx context.Context, limit, offset int) ([]*ValidationRecord, error) {
	query := `
		SELECT id, drug_name, disease_name, risk_level,
			evidence_blocks, outcome, duration_ms, created_at
		FROM validations
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query validations: %w", err)
	}
	defer rows.Close()

	var result []*ValidationRecord
	for rows.Next() {
		rec, err := scanValidation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// CountAnalyses returns the total number of analysis records.
func (s *PostgresStore) CountAnalyses(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

// ExportJSON exports the full history to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	analyses, err := s.RecentAnalyses(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}
	validations, err := s.RecentValidations(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list validations: %w", err)
	}

	export := &Export{
		Version:     "1.0",
		ExportedAt:  time.Now(),
		Analyses:    analyses,
		Validations: validations,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
