package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/drug-repurposing-engine/internal/config"
)

// ClinicalTrialsClient handles interactions with the ClinicalTrials.gov
// v2 API.
type ClinicalTrialsClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClinicalTrialsClient creates a new ClinicalTrials.gov API client.
func NewClinicalTrialsClient(cfg config.SourceConfig) *ClinicalTrialsClient {
	return &ClinicalTrialsClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg),
	}
}

// TrialStats summarizes registry activity for a drug-condition pair.
type TrialStats struct {
	TotalStudies int `json:"total_studies"`
	Recruiting   int `json:"recruiting"`
	LatePhase    int `json:"late_phase"`
}

type trialsSearchResponse struct {
	TotalCount int `json:"totalCount"`
	Studies    []struct {
		ProtocolSection struct {
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			DesignModule struct {
				Phases []string `json:"phases"`
			} `json:"designModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

// ConditionTrialCount returns how many actively running studies the
// registry lists for a condition.
func (c *ClinicalTrialsClient) ConditionTrialCount(ctx context.Context, condition string) (int, error) {
	params := url.Values{
		"query.cond":           {condition},
		"filter.overallStatus": {"RECRUITING,ACTIVE_NOT_RECRUITING,ENROLLING_BY_INVITATION"},
		"countTotal":           {"true"},
		"pageSize":             {"1"},
	}

	var response trialsSearchResponse
	if err := c.getJSON(ctx, params, &response); err != nil {
		return 0, err
	}
	return response.TotalCount, nil
}

// PairTrials summarizes registry activity for a drug tested in a
// condition.
func (c *ClinicalTrialsClient) PairTrials(ctx context.Context, drug, condition string) (*TrialStats, error) {
	params := url.Values{
		"query.cond": {condition},
		"query.intr": {drug},
		"countTotal": {"true"},
		"pageSize":   {"50"},
		"fields":     {"protocolSection.statusModule.overallStatus,protocolSection.designModule.phases"},
	}

	var response trialsSearchResponse
	if err := c.getJSON(ctx, params, &response); err != nil {
		return nil, err
	}

	stats := &TrialStats{TotalStudies: response.TotalCount}
	for _, study := range response.Studies {
		if study.ProtocolSection.StatusModule.OverallStatus == "RECRUITING" {
			stats.Recruiting++
		}
		for _, phase := range study.ProtocolSection.DesignModule.Phases {
			if phase == "PHASE3" || phase == "PHASE4" {
				stats.LatePhase++
				break
			}
		}
	}
	return stats, nil
}

// getJSON executes a rate-limited GET against the studies endpoint.
func (c *ClinicalTrialsClient) getJSON(ctx context.Context, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fullURL := fmt.Sprintf("%s/studies?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clinicaltrials API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
