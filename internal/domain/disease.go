// Package domain contains the core types of the drug repurposing engine:
// diseases, drug candidates, contraindication records, clinical validation
// results and the engine's error taxonomy.
package domain

// Disease is a canonical disease record produced by the resolver.
// Immutable once resolved; cached by normalized name.
type Disease struct {
	ID          string `json:"id"` // upstream identifier (e.g. EFO id)
	Name        string `json:"name"`
	Description string `json:"description"`

	// Genes holds associated gene symbols, strongest association first.
	Genes []string `json:"genes"`
	// GeneScores carries per-gene association confidence in [0,1] when the
	// upstream provides it; missing genes score as unweighted.
	GeneScores map[string]float64 `json:"gene_scores,omitempty"`
	// Pathways holds pathway identifiers derived from the associated genes.
	Pathways []string `json:"pathways"`

	IsRare       bool `json:"is_rare"`
	ActiveTrials int  `json:"active_trials"`
}

// TopGenes returns up to n leading gene symbols for response summaries.
func (d *Disease) TopGenes(n int) []string {
	if n > len(d.Genes) {
		n = len(d.Genes)
	}
	out := make([]string, n)
	copy(out, d.Genes[:n])
	return out
}

// GeneWeight returns the association score for a gene, defaulting to 1
// so unweighted gene sets degrade to plain overlap counting.
func (d *Disease) GeneWeight(gene string) float64 {
	if d.GeneScores == nil {
		return 1
	}
	if w, ok := d.GeneScores[gene]; ok {
		return w
	}
	return 1
}

// AnalysisRequest is the engine input for one scoring run.
type AnalysisRequest struct {
	DiseaseName string  `json:"disease_name"`
	MinScore    float64 `json:"min_score"`
	MaxResults  int     `json:"max_results"`
}

// Default request bounds, applied when the caller omits a field.
const (
	DefaultMinScore   = 0.2
	DefaultMaxResults = 20
)

// Normalized returns a copy with defaults applied for omitted fields.
// MinScore zero is treated as "not set" to match the deployed UI, which
// always sends an explicit threshold when it wants one.
func (r AnalysisRequest) Normalized() AnalysisRequest {
	if r.MinScore <= 0 {
		r.MinScore = DefaultMinScore
	}
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	return r
}

// Validate rejects requests the pipeline cannot serve.
func (r AnalysisRequest) Validate() error {
	if r.DiseaseName == "" {
		return NewInvalidInput("disease_name", "disease name is required")
	}
	if r.MinScore < 0 || r.MinScore > 1 {
		return NewInvalidInput("min_score", "min_score must be within [0,1]")
	}
	if r.MaxResults < 0 {
		return NewInvalidInput("max_results", "max_results must be at least 1")
	}
	return nil
}
