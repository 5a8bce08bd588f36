// Package history persists an audit trail of analysis and validation
// runs. Rows feed the /history endpoint and the export CLI; writes are
// best-effort and never fail the request that produced them.
package history

import (
	"context"
	"io"
	"time"
)

// Outcome labels how a recorded run ended.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// AnalysisRecord is one completed (or failed) scoring run.
type AnalysisRecord struct {
	ID             int64     `json:"id,omitempty"`
	DiseaseQuery   string    `json:"disease_query"` // raw user input
	DiseaseName    string    `json:"disease_name"`  // resolved canonical name
	DiseaseID      string    `json:"disease_id,omitempty"`
	MinScore       float64   `json:"min_score"`
	MaxResults     int       `json:"max_results"`
	CandidateCount int       `json:"candidate_count"`
	FilteredCount  int       `json:"filtered_count"`
	TopDrug        string    `json:"top_drug,omitempty"`
	TopScore       float64   `json:"top_score,omitempty"`
	Degraded       string    `json:"degraded,omitempty"` // comma-joined source names
	Outcome        string    `json:"outcome"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidationRecord is one clinical validation run for a (drug, disease)
// pair.
type ValidationRecord struct {
	ID             int64     `json:"id,omitempty"`
	DrugName       string    `json:"drug_name"`
	DiseaseName    string    `json:"disease_name"`
	RiskLevel      string    `json:"risk_level,omitempty"`
	EvidenceBlocks int       `json:"evidence_blocks"`
	Outcome        string    `json:"outcome"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store defines the history storage operations.
type Store interface {
	// SaveAnalysis appends one analysis record.
	SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error

	// SaveValidation appends one validation record.
	SaveValidation(ctx context.Context, rec *ValidationRecord) error

	// RecentAnalyses returns records newest first, with pagination.
	RecentAnalyses(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error)

	// RecentValidations returns records newest first, with pagination.
	RecentValidations(ctx context.Context, limit, offset int) ([]*ValidationRecord, error)

	// CountAnalyses returns the total number of analysis records.
	CountAnalyses(ctx context.Context) (int64, error)

	// ExportJSON writes the full history to a JSON writer.
	ExportJSON(ctx context.Context, w io.Writer) error

	// Close releases the underlying database handle.
	Close() error
}

// Export is the JSON export envelope.
type Export struct {
	Version     string              `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Analyses    []*AnalysisRecord   `json:"analyses"`
	Validations []*ValidationRecord `json:"validations"`
}
