package api

import (
	"math"

	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/service"
)

// Score fields round to four decimals here and nowhere else; internal
// pipeline stages carry full precision.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// generationSources names the evidence sources candidate generation
// consults, echoed in response metadata.
var generationSources = []string{"Open Targets", "ChEMBL", "DGIdb"}

type analyzeResponse struct {
	Success       bool           `json:"success"`
	Disease       *diseaseDTO    `json:"disease"`
	Candidates    []candidateDTO `json:"candidates"`
	FilteredCount int            `json:"filtered_count"`
	FilteredDrugs []filteredDTO  `json:"filtered_drugs"`
	Metadata      metadataDTO    `json:"metadata"`
	Error         string         `json:"error,omitempty"`
	Suggestion    string         `json:"suggestion,omitempty"`
}

type diseaseDTO struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	GenesCount    int      `json:"genes_count"`
	PathwaysCount int      `json:"pathways_count"`
	TopGenes      []string `json:"top_genes"`
	IsRare        bool     `json:"is_rare"`
	ActiveTrials  int      `json:"active_trials"`
}

// candidateDTO carries each score under both its long and short field
// name; older UI builds read one, newer builds the other.
type candidateDTO struct {
	DrugName           string `json:"drug_name"`
	Indication         string `json:"indication"`
	OriginalIndication string `json:"original_indication"`
	Mechanism          string `json:"mechanism"`
	Explanation        string `json:"explanation"`

	SharedGenes    []string `json:"shared_genes"`
	SharedPathways []string `json:"shared_pathways"`

	CompositeScore      float64 `json:"composite_score"`
	Score               float64 `json:"score"`
	GeneTargetScore     float64 `json:"gene_target_score"`
	GeneScore           float64 `json:"gene_score"`
	PathwayOverlapScore float64 `json:"pathway_overlap_score"`
	PathwayScore        float64 `json:"pathway_score"`

	Confidence string   `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
}

type filteredDTO struct {
	DrugName  string `json:"drug_name"`
	Severity  string `json:"severity"`
	Reason    string `json:"reason"`
	MatchedOn string `json:"matched_on"`
}

type metadataDTO struct {
	SearchedTerm     string   `json:"searched_term"`
	DatabasesChecked []string `json:"databases_checked"`
	DurationMS       int64    `json:"duration_ms,omitempty"`
	Cached           bool     `json:"cached"`
	Degraded         []string `json:"degraded,omitempty"`
}

func toDiseaseDTO(d *domain.Disease) *diseaseDTO {
	if d == nil {
		return nil
	}
	return &diseaseDTO{
		Name:          d.Name,
		Description:   d.Description,
		GenesCount:    len(d.Genes),
		PathwaysCount: len(d.Pathways),
		TopGenes:      d.TopGenes(5),
		IsRare:        d.IsRare,
		ActiveTrials:  d.ActiveTrials,
	}
}

func toCandidateDTO(c domain.Candidate) candidateDTO {
	composite := round4(c.CompositeScore)
	gene := round4(c.GeneTargetScore)
	pathway := round4(c.PathwayOverlapScore)
	return candidateDTO{
		DrugName:           c.DrugName,
		Indication:         c.Indication,
		OriginalIndication: c.Indication,
		Mechanism:          c.Mechanism,
		Explanation:        c.Explanation,

		SharedGenes:    c.SharedGenes,
		SharedPathways: c.SharedPathways,

		CompositeScore:      composite,
		Score:               composite,
		GeneTargetScore:     gene,
		GeneScore:           gene,
		PathwayOverlapScore: pathway,
		PathwayScore:        pathway,

		Confidence: string(c.Confidence),
		Sources:    c.Sources,
	}
}

func toFilteredDTO(f domain.FilteredDrug) filteredDTO {
	return filteredDTO{
		DrugName:  f.DrugName,
		Severity:  string(f.Severity),
		Reason:    f.Reason,
		MatchedOn: string(f.MatchedOn),
	}
}

func successAnalysis(searched string, outcome *service.AnalysisOutcome) analyzeResponse {
	candidates := make([]candidateDTO, 0, len(outcome.Candidates))
	for _, c := range outcome.Candidates {
		candidates = append(candidates, toCandidateDTO(c))
	}
	filtered := make([]filteredDTO, 0, len(outcome.FilteredDrugs))
	for _, f := range outcome.FilteredDrugs {
		filtered = append(filtered, toFilteredDTO(f))
	}

	return analyzeResponse{
		Success:       true,
		Disease:       toDiseaseDTO(outcome.Disease),
		Candidates:    candidates,
		FilteredCount: len(filtered),
		FilteredDrugs: filtered,
		Metadata: metadataDTO{
			SearchedTerm:     searched,
			DatabasesChecked: generationSources,
			DurationMS:       outcome.ProcessingTime.Milliseconds(),
			Cached:           false,
			Degraded:         outcome.Degraded,
		},
	}
}

func failedAnalysis(searched string, err error) analyzeResponse {
	message := "An unexpected error occurred during analysis."
	suggestion := ""
	if engineErr, ok := domain.AsEngineError(err); ok {
		message = engineErr.Message
		suggestion = engineErr.Suggestion
	}

	return analyzeResponse{
		Success:       false,
		Candidates:    []candidateDTO{},
		FilteredDrugs: []filteredDTO{},
		Metadata: metadataDTO{
			SearchedTerm:     searched,
			DatabasesChecked: generationSources,
		},
		Error:      message,
		Suggestion: suggestion,
	}
}
