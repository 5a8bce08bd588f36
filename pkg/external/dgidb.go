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

// DGIdbClient handles interactions with the Drug Gene Interaction
// Database GraphQL API.
type DGIdbClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewDGIdbClient creates a new DGIdb API client.
func NewDGIdbClient(cfg config.SourceConfig) *DGIdbClient {
	return &DGIdbClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg),
	}
}

// GeneInteraction is one drug-gene interaction record.
type GeneInteraction struct {
	Gene     string   `json:"gene"`
	DrugName string   `json:"drug_name"`
	Approved bool     `json:"approved"`
	Score    float64  `json:"score"`
	Types    []string `json:"types,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

type dgidbInteractionsResponse struct {
	Data struct {
		Genes struct {
			Nodes []struct {
				Name         string `json:"name"`
				Interactions []struct {
					Drug struct {
						Name     string `json:"name"`
						Approved bool   `json:"approved"`
					} `json:"drug"`
					InteractionScore float64 `json:"interactionScore"`
					InteractionTypes []struct {
						Type string `json:"type"`
					} `json:"interactionTypes"`
					Sources []struct {
						SourceDbName string `json:"sourceDbName"`
					} `json:"sources"`
				} `json:"interactions"`
			} `json:"nodes"`
		} `json:"genes"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const geneInteractionsQuery = `
query GeneInteractions($names: [String!]!) {
	genes(names: $names) {
		nodes {
			name
			interactions {
				drug {
					name
					approved
				}
				interactionScore
				interactionTypes {
					type
				}
				sources {
					sourceDbName
				}
			}
		}
	}
}`

// InteractionsForGenes retrieves all drug interactions recorded for the
// given gene symbols.
func (c *DGIdbClient) InteractionsForGenes(ctx context.Context, genes []string) ([]GeneInteraction, error) {
	if len(genes) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestBody := map[string]interface{}{
		"query": geneInteractionsQuery,
		"variables": map[string]interface{}{
			"names": genes,
		},
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("dgidb API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GraphQL response: %w", err)
	}

	var response dgidbInteractionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL response: %w", err)
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("dgidb API error: %s", response.Errors[0].Message)
	}

	var interactions []GeneInteraction
	for _, node := range response.Data.Genes.Nodes {
		for _, raw := range node.Interactions {
			if raw.Drug.Name == "" {
				continue
			}
			interaction := GeneInteraction{
				Gene:     node.Name,
				DrugName: raw.Drug.Name,
				Approved: raw.Drug.Approved,
				Score:    raw.InteractionScore,
			}
			for _, t := range raw.InteractionTypes {
				if t.Type != "" {
					interaction.Types = append(interaction.Types, t.Type)
				}
			}
			for _, s := range raw.Sources {
				if s.SourceDbName != "" {
					interaction.Sources = append(interaction.Sources, s.SourceDbName)
				}
			}
			interactions = append(interactions, interaction)
		}
	}
	return interactions, nil
}
