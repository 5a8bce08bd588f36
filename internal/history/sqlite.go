package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(s scanner) (*AnalysisRecord, error) {
	rec := &AnalysisRecord{}
	err := s.Scan(
		&rec.ID, &rec.DiseaseQuery, &rec.DiseaseName, &rec.DiseaseID,
		&rec.MinScore, &rec.MaxResults, &rec.CandidateCount, &rec.FilteredCount,
		&rec.TopDrug, &rec.TopScore, &rec.Degraded,
		&rec.Outcome, &rec.DurationMS, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanValidation(s scanner) (*ValidationRecord, error) {
	rec := &ValidationRecord{}
	err := s.Scan(
		&rec.ID, &rec.DrugName, &rec.DiseaseName, &rec.RiskLevel,
		&rec.EvidenceBlocks, &rec.Outcome, &rec.DurationMS, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		disease_query TEXT NOT NULL,
		disease_name TEXT DEFAULT '',
		disease_id TEXT DEFAULT '',
		min_score REAL NOT NULL DEFAULT 0,
		max_results INTEGER NOT NULL DEFAULT 0,
		candidate_count INTEGER NOT NULL DEFAULT 0,
		filtered_count INTEGER NOT NULL DEFAULT 0,
		top_drug TEXT DEFAULT '',
		top_score REAL NOT NULL DEFAULT 0,
		degraded TEXT DEFAULT '',
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS validations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug_name TEXT NOT NULL,
		disease_name TEXT NOT NULL,
		risk_level TEXT DEFAULT '',
		evidence_blocks INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_disease_name ON analyses(disease_name);
	CREATE INDEX IF NOT EXISTS idx_validations_created_at ON validations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveAnalysis appends one analysis record. History is append-only.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (
			disease_query, disease_name, disease_id,
			min_score, max_results, candidate_count, filtered_count,
			top_drug, top_score, degraded, outcome, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	rec.ID = id

	return nil
}

// SaveValidation appends one validation record.
func (s *SQLiteStore) SaveValidation(ctx context.Context, rec *ValidationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO validations (
			drug_name, disease_name, risk_level,
			evidence_blocks, outcome, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.DrugName,
		rec.DiseaseName,
		rec.RiskLevel,
		rec.EvidenceBlocks,
		rec.Outcome,
		rec.DurationMS,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert validation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	rec.ID = id

	return nil
}

// RecentAnalyses returns analysis records newest first, with pagination.
func (s *SQLiteStore) RecentAnalyses(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, disease_query, disease_name, disease_id,
			min_score, max_results, candidate_count, filtered_count,
			top_drug, top_score, degraded, outcome, duration_ms, created_at
		FROM analyses
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
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
func (s *SQLiteStore) RecentValidations(ctx context.Context, limit, offset int) ([]*ValidationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, drug_name, disease_name, risk_level,
			evidence_blocks, outcome, duration_ms, created_at
		FROM validations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
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
func (s *SQLiteStore) CountAnalyses(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&count)
	return count, err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports the full history to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
