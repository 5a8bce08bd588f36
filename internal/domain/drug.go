package domain

// Confidence labels a candidate's composite score for the UI's
// color-coding contract.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // composite >= 0.7, rendered green
	ConfidenceMedium Confidence = "medium" // composite >= 0.5, rendered amber
	ConfidenceLow    Confidence = "low"    // below 0.5, rendered red
)

// Confidence thresholds. These mirror the UI's color cutoffs exactly and
// are boundary-tested; changing them is a breaking contract change.
const (
	ConfidenceHighThreshold   = 0.7
	ConfidenceMediumThreshold = 0.5
)

// ConfidenceFor maps a composite score onto its confidence label.
func ConfidenceFor(composite float64) Confidence {
	switch {
	case composite >= ConfidenceHighThreshold:
		return ConfidenceHigh
	case composite >= ConfidenceMediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// DrugRecord is one approved drug in the candidate corpus, merged across
// upstream sources by normalized name.
type DrugRecord struct {
	Name       string   `json:"name"` // display form, upper-case
	Indication string   `json:"indication"`
	Mechanism  string   `json:"mechanism"`
	Targets    []string `json:"targets"` // gene symbols, sorted
	Sources    []string `json:"sources"` // contributing upstreams, sorted
}

// Candidate is a scored repurposing candidate for one disease.
type Candidate struct {
	DrugName    string `json:"drug_name"`
	Indication  string `json:"indication"`
	Mechanism   string `json:"mechanism"`
	Explanation string `json:"explanation"`

	SharedGenes    []string `json:"shared_genes"`
	SharedPathways []string `json:"shared_pathways"`

	GeneTargetScore     float64    `json:"gene_target_score"`
	PathwayOverlapScore float64    `json:"pathway_overlap_score"`
	CompositeScore      float64    `json:"composite_score"`
	Confidence          Confidence `json:"confidence"`

	Sources []string `json:"sources,omitempty"`
}

// Severity ranks contraindication records; absolute outranks relative.
type Severity string

const (
	SeverityAbsolute Severity = "absolute"
	SeverityRelative Severity = "relative"
)

// MatchBasis records which attribute of a drug matched a
// contraindication record.
type MatchBasis string

const (
	MatchedOnName      MatchBasis = "name"
	MatchedOnClass     MatchBasis = "class"
	MatchedOnMechanism MatchBasis = "mechanism"
)

// FilteredDrug is a candidate removed by the contraindication filter.
// For any disease a drug name appears in at most one of the candidate
// list and the filtered list.
type FilteredDrug struct {
	DrugName  string     `json:"drug_name"`
	Severity  Severity   `json:"severity"`
	Reason    string     `json:"reason"`
	MatchedOn MatchBasis `json:"matched_on"`
}

// AnalysisResult is the assembled outcome of one scoring run.
type AnalysisResult struct {
	Disease       *Disease       `json:"disease"`
	Candidates    []Candidate    `json:"candidates"`
	FilteredDrugs []FilteredDrug `json:"filtered_drugs"`
	// Degraded lists upstream sources that contributed nothing because of
	// timeouts or open circuit breakers; empty on a clean run.
	Degraded []string `json:"degraded,omitempty"`
}
