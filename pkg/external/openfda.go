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

// OpenFDAClient handles interactions with the openFDA drug event and
// label endpoints.
type OpenFDAClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenFDAClient creates a new openFDA API client.
func NewOpenFDAClient(cfg config.SourceConfig) *OpenFDAClient {
	return &OpenFDAClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg),
	}
}

// ReactionCount is one adverse reaction term with its report count.
type ReactionCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// SafetyProfile summarizes post-market safety signals for a drug.
type SafetyProfile struct {
	ReportCount  int             `json:"report_count"`
	TopReactions []ReactionCount `json:"top_reactions,omitempty"`
	BoxedWarning bool            `json:"boxed_warning"`
}

type openFDACountResponse struct {
	Meta struct {
		Results struct {
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []ReactionCount `json:"results"`
}

type openFDALabelResponse struct {
	Results []struct {
		BoxedWarning []string `json:"boxed_warning"`
	} `json:"results"`
}

// AdverseEventProfile summarizes FAERS adverse event reports and label
// warnings for a drug. A drug with no reports yields a zero profile,
// not an error.
func (c *OpenFDAClient) AdverseEventProfile(ctx context.Context, drug string) (*SafetyProfile, error) {
	profile := &SafetyProfile{}

	search := fmt.Sprintf(`patient.drug.medicinalproduct:%q`, strings.ToUpper(drug))

	// Total report count.
	totalParams := url.Values{
		"search": {search},
		"limit":  {"1"},
	}
	var totalResp openFDACountResponse
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/drug/event.json?%s", c.baseURL, c.withKey(totalParams).Encode()), &totalResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch adverse event count: %w", err)
	}
	if found {
		profile.ReportCount = totalResp.Meta.Results.Total
	}

	// Top reaction terms, only worth asking for when reports exist.
	if profile.ReportCount > 0 {
		reactionParams := url.Values{
			"search": {search},
			"count":  {"patient.reaction.reactionmeddrapt.exact"},
			"limit":  {"10"},
		}
		var reactionResp openFDACountResponse
		found, err = c.getJSON(ctx, fmt.Sprintf("%s/drug/event.json?%s", c.baseURL, c.withKey(reactionParams).Encode()), &reactionResp)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reaction counts: %w", err)
		}
		if found {
			profile.TopReactions = reactionResp.Results
		}
	}

	boxed, err := c.hasBoxedWarning(ctx, drug)
	if err != nil {
		return nil, err
	}
	profile.BoxedWarning = boxed

	return profile, nil
}

// hasBoxedWarning checks the structured product label for a boxed
// warning section.
func (c *OpenFDAClient) hasBoxedWarning(ctx context.Context, drug string) (bool, error) {
	// Space-separated terms; Encode turns the space into the separator
	// the query syntax expects.
	params := url.Values{
		"search": {fmt.Sprintf(`openfda.generic_name:%q openfda.brand_name:%q`, drug, drug)},
		"limit":  {"1"},
	}

	var response openFDALabelResponse
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/drug/label.json?%s", c.baseURL, c.withKey(params).Encode()), &response)
	if err != nil {
		return false, fmt.Errorf("failed to fetch drug label: %w", err)
	}
	if !found || len(response.Results) == 0 {
		return false, nil
	}
	return len(response.Results[0].BoxedWarning) > 0, nil
}

// getJSON executes a rate-limited GET. openFDA answers queries with no
// matches with a 404, which is reported as found=false rather than an
// error.
func (c *OpenFDAClient) getJSON(ctx context.Context, fullURL string, dest interface{}) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("openfda API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}

// withKey adds the API key parameter when configured.
func (c *OpenFDAClient) withKey(params url.Values) url.Values {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}
