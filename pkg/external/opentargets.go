package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/drug-repurposing-engine/internal/config"
)

// OpenTargetsClient handles interactions with the Open Targets Platform
// GraphQL API.
type OpenTargetsClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenTargetsClient creates a new Open Targets API client.
func NewOpenTargetsClient(cfg config.SourceConfig) *OpenTargetsClient {
	return &OpenTargetsClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg),
	}
}

// DiseaseHit is one disease entry from an Open Targets search.
type DiseaseHit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TargetAssociation is one gene associated with a disease, with the
// platform's overall association score in [0,1].
type TargetAssociation struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

// DiseaseAssociations is the gene association profile for one disease.
type DiseaseAssociations struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	TotalCount  int                 `json:"total_count"`
	Targets     []TargetAssociation `json:"targets"`
}

type openTargetsSearchResponse struct {
	Data struct {
		Search struct {
			Hits []struct {
				ID          string `json:"id"`
				Name        string `json:"name"`
				Description string `json:"description"`
				Entity      string `json:"entity"`
			} `json:"hits"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type openTargetsAssociationsResponse struct {
	Data struct {
		Disease *struct {
			ID                string `json:"id"`
			Name              string `json:"name"`
			Description       string `json:"description"`
			AssociatedTargets struct {
				Count int `json:"count"`
				Rows  []struct {
					Target struct {
						ApprovedSymbol string `json:"approvedSymbol"`
					} `json:"target"`
					Score float64 `json:"score"`
				} `json:"rows"`
			} `json:"associatedTargets"`
		} `json:"disease"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const searchDiseasesQuery = `
query SearchDiseases($query: String!, $size: Int!) {
	search(queryString: $query, entityNames: ["disease"], page: {index: 0, size: $size}) {
		hits {
			id
			name
			description
			entity
		}
	}
}`

const diseaseAssociationsQuery = `
query DiseaseAssociations($efoId: String!, $size: Int!) {
	disease(efoId: $efoId) {
		id
		name
		description
		associatedTargets(page: {index: 0, size: $size}) {
			count
			rows {
				target {
					approvedSymbol
				}
				score
			}
		}
	}
}`

// SearchDiseases searches the platform for diseases matching the query.
func (c *OpenTargetsClient) SearchDiseases(ctx context.Context, query string, limit int) ([]DiseaseHit, error) {
	if limit <= 0 {
		limit = 5
	}

	var response openTargetsSearchResponse
	err := c.queryGraphQL(ctx, searchDiseasesQuery, map[string]interface{}{
		"query": query,
		"size":  limit,
	}, &response)
	if err != nil {
		return nil, err
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("open targets API error: %s", response.Errors[0].Message)
	}

	hits := make([]DiseaseHit, 0, len(response.Data.Search.Hits))
	for _, hit := range response.Data.Search.Hits {
		if hit.Entity != "" && hit.Entity != "disease" {
			continue
		}
		hits = append(hits, DiseaseHit{
			ID:          hit.ID,
			Name:        hit.Name,
			Description: hit.Description,
		})
	}
	return hits, nil
}

// DiseaseAssociations retrieves the gene association profile for a
// disease by its EFO identifier.
func (c *OpenTargetsClient) DiseaseAssociations(ctx context.Context, diseaseID string, limit int) (*DiseaseAssociations, error) {
	if limit <= 0 {
		limit = 25
	}

	var response openTargetsAssociationsResponse
	err := c.queryGraphQL(ctx, diseaseAssociationsQuery, map[string]interface{}{
		"efoId": diseaseID,
		"size":  limit,
	}, &response)
	if err != nil {
		return nil, err
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("open targets API error: %s", response.Errors[0].Message)
	}
	if response.Data.Disease == nil {
		return nil, fmt.Errorf("disease %s not found in open targets", diseaseID)
	}

	disease := response.Data.Disease
	associations := &DiseaseAssociations{
		ID:          disease.ID,
		Name:        disease.Name,
		Description: disease.Description,
		TotalCount:  disease.AssociatedTargets.Count,
		Targets:     make([]TargetAssociation, 0, len(disease.AssociatedTargets.Rows)),
	}
	for _, row := range disease.AssociatedTargets.Rows {
		associations.Targets = append(associations.Targets, TargetAssociation{
			Symbol: row.Target.ApprovedSymbol,
			Score:  row.Score,
		})
	}
	return associations, nil
}

// queryGraphQL executes a GraphQL query against the Open Targets API.
func (c *OpenTargetsClient) queryGraphQL(ctx context.Context, query string, variables map[string]interface{}, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	requestBody := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute GraphQL request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("open targets API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read GraphQL response: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse GraphQL response: %w", err)
	}
	return nil
}
