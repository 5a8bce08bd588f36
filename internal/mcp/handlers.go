package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/service"
)

// AnalyzeDiseaseParams defines parameters for the analyze_disease tool
type AnalyzeDiseaseParams struct {
	DiseaseName string  `json:"disease_name"`
	MinScore    float64 `json:"min_score,omitempty"`
	MaxResults  int     `json:"max_results,omitempty"`
}

// AnalyzeDiseaseResult defines the result structure for analyze_disease
type AnalyzeDiseaseResult struct {
	Disease       DiseaseSummary     `json:"disease"`
	Candidates    []CandidateSummary `json:"candidates"`
	FilteredCount int                `json:"filtered_count"`
	FilteredDrugs []FilteredSummary  `json:"filtered_drugs"`
	Degraded      []string           `json:"degraded,omitempty"`
	DurationMS    int64              `json:"duration_ms"`
}

// DiseaseSummary condenses the resolved disease record.
type DiseaseSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	TopGenes     []string `json:"top_genes"`
	PathwayCount int      `json:"pathway_count"`
	IsRare       bool     `json:"is_rare"`
	ActiveTrials int      `json:"active_trials"`
}

// CandidateSummary is one ranked repurposing candidate.
type CandidateSummary struct {
	DrugName       string   `json:"drug_name"`
	Indication     string   `json:"indication"`
	Mechanism      string   `json:"mechanism"`
	Explanation    string   `json:"explanation"`
	SharedGenes    []string `json:"shared_genes"`
	SharedPathways []string `json:"shared_pathways"`
	Score          float64  `json:"score"`
	GeneScore      float64  `json:"gene_score"`
	PathwayScore   float64  `json:"pathway_score"`
	Confidence     string   `json:"confidence"`
}

// FilteredSummary is one drug removed by the contraindication screen.
type FilteredSummary struct {
	DrugName  string `json:"drug_name"`
	Severity  string `json:"severity"`
	Reason    string `json:"reason"`
	MatchedOn string `json:"matched_on"`
}

// ValidateCandidateParams defines parameters for validate_candidate
type ValidateCandidateParams struct {
	DrugName    string `json:"drug_name"`
	DiseaseName string `json:"disease_name"`
	Mechanism   string `json:"mechanism,omitempty"`
	Indication  string `json:"indication,omitempty"`
}

// SearchDiseasesParams defines parameters for search_diseases
type SearchDiseasesParams struct {
	Query string `json:"query"`
}

// SearchDiseasesResult defines the result structure for search_diseases
type SearchDiseasesResult struct {
	Query string       `json:"query"`
	Hits  []DiseaseHit `json:"hits"`
}

// DiseaseHit is one disease search match.
type DiseaseHit struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Tool results round scores to four decimals; the pipeline itself
// carries full precision.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// handleAnalyzeDisease handles the analyze_disease tool invocation
func (s *Server) handleAnalyzeDisease(ctx context.Context, req *mcp.CallToolRequest, params AnalyzeDiseaseParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "analyze_disease").Info("Tool invoked")

	if params.DiseaseName == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("disease_name is required")), nil, nil
	}

	outcome, err := s.analysis.Analyze(ctx, domain.AnalysisRequest{
		DiseaseName: params.DiseaseName,
		MinScore:    params.MinScore,
		MaxResults:  params.MaxResults,
	})
	if err != nil {
		return s.engineErrorResult(err), nil, nil
	}

	result := analyzeResult(outcome)
	return s.jsonResult(result), result, nil
}

// handleValidateCandidate handles the validate_candidate tool invocation
func (s *Server) handleValidateCandidate(ctx context.Context, req *mcp.CallToolRequest, params ValidateCandidateParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "validate_candidate").Info("Tool invoked")

	if params.DrugName == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("drug_name is required")), nil, nil
	}
	if params.DiseaseName == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("disease_name is required")), nil, nil
	}

	validation, err := s.analysis.ValidateCandidate(ctx, domain.ValidationRequest{
		DrugName:    params.DrugName,
		DiseaseName: params.DiseaseName,
		Mechanism:   params.Mechanism,
		Indication:  params.Indication,
	})
	if err != nil {
		return s.engineErrorResult(err), nil, nil
	}

	return s.jsonResult(validation), validation, nil
}

// handleSearchDiseases handles the search_diseases tool invocation
func (s *Server) handleSearchDiseases(ctx context.Context, req *mcp.CallToolRequest, params SearchDiseasesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "search_diseases").Info("Tool invoked")

	if params.Query == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("query is required")), nil, nil
	}

	hits, err := s.analysis.SearchDiseases(ctx, params.Query, 10)
	if err != nil {
		return s.engineErrorResult(err), nil, nil
	}

	result := SearchDiseasesResult{Query: params.Query, Hits: make([]DiseaseHit, 0, len(hits))}
	for _, hit := range hits {
		result.Hits = append(result.Hits, DiseaseHit{ID: hit.ID, Name: hit.Name, Description: hit.Description})
	}

	return s.jsonResult(result), result, nil
}

func analyzeResult(outcome *service.AnalysisOutcome) AnalyzeDiseaseResult {
	result := AnalyzeDiseaseResult{
		Disease: DiseaseSummary{
			ID:           outcome.Disease.ID,
			Name:         outcome.Disease.Name,
			Description:  outcome.Disease.Description,
			TopGenes:     outcome.Disease.TopGenes(5),
			PathwayCount: len(outcome.Disease.Pathways),
			IsRare:       outcome.Disease.IsRare,
			ActiveTrials: outcome.Disease.ActiveTrials,
		},
		Candidates:    make([]CandidateSummary, 0, len(outcome.Candidates)),
		FilteredDrugs: make([]FilteredSummary, 0, len(outcome.FilteredDrugs)),
		Degraded:      outcome.Degraded,
		DurationMS:    outcome.ProcessingTime.Milliseconds(),
	}

	for _, c := range outcome.Candidates {
		result.Candidates = append(result.Candidates, CandidateSummary{
			DrugName:       c.DrugName,
			Indication:     c.Indication,
			Mechanism:      c.Mechanism,
			Explanation:    c.Explanation,
			SharedGenes:    c.SharedGenes,
			SharedPathways: c.SharedPathways,
			Score:          round4(c.CompositeScore),
			GeneScore:      round4(c.GeneTargetScore),
			PathwayScore:   round4(c.PathwayOverlapScore),
			Confidence:     string(c.Confidence),
		})
	}
	for _, f := range outcome.FilteredDrugs {
		result.FilteredDrugs = append(result.FilteredDrugs, FilteredSummary{
			DrugName:  f.DrugName,
			Severity:  string(f.Severity),
			Reason:    f.Reason,
			MatchedOn: string(f.MatchedOn),
		})
	}
	result.FilteredCount = len(result.FilteredDrugs)

	return result
}

// jsonResult renders the payload as indented JSON so hosts without
// structured-content support still see the full result.
func (s *Server) jsonResult(payload interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}
}

// engineErrorResult converts a pipeline error into a tool error result,
// keeping the user-facing message and suggestion.
func (s *Server) engineErrorResult(err error) *mcp.CallToolResult {
	if engineErr, ok := domain.AsEngineError(err); ok {
		text := engineErr.Message
		if engineErr.Suggestion != "" {
			text += " " + engineErr.Suggestion
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
			IsError: true,
		}
	}
	return s.createErrorResult("Tool execution failed", err)
}

func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
