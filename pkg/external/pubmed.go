package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/drug-repurposing-engine/internal/config"
)

// PubMedClient handles interactions with the NCBI E-utilities API for
// PubMed literature search.
type PubMedClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPubMedClient creates a new PubMed API client.
func NewPubMedClient(cfg config.SourceConfig) *PubMedClient {
	return &PubMedClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg),
	}
}

// Article is one PubMed literature reference.
type Article struct {
	PMID  string `json:"pmid"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// LiteratureResult is the outcome of a PubMed search.
type LiteratureResult struct {
	TotalCount int       `json:"total_count"`
	Articles   []Article `json:"articles"`
}

type pubmedSearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// SearchArticles searches PubMed and returns the total hit count plus
// summaries for the top matches.
func (c *PubMedClient) SearchArticles(ctx context.Context, term string, retmax int) (*LiteratureResult, error) {
	if retmax <= 0 {
		retmax = 5
	}

	ids, total, err := c.search(ctx, term, retmax)
	if err != nil {
		return nil, fmt.Errorf("failed to search pubmed: %w", err)
	}

	result := &LiteratureResult{TotalCount: total}
	if len(ids) == 0 {
		return result, nil
	}

	articles, err := c.summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get pubmed summaries: %w", err)
	}
	result.Articles = articles
	return result, nil
}

// search runs an E-search query and returns matching PMIDs and the
// total hit count.
func (c *PubMedClient) search(ctx context.Context, term string, retmax int) ([]string, int, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(retmax)},
		"sort":    {"relevance"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/esearch.fcgi?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, 0, err
	}

	var response pubmedSearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, 0, fmt.Errorf("failed to parse search response: %w", err)
	}

	total, _ := strconv.Atoi(response.ESearchResult.Count)
	return response.ESearchResult.IDList, total, nil
}

// summaries runs an E-summary query for the given PMIDs.
func (c *PubMedClient) summaries(ctx context.Context, pmids []string) ([]Article, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"json"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/esummary.fcgi?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	// The summary result is a map keyed by PMID plus a "uids" list that
	// preserves result order.
	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}

	var uids []string
	if raw, ok := envelope.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, fmt.Errorf("failed to parse summary uid list: %w", err)
		}
	}

	articles := make([]Article, 0, len(uids))
	for _, uid := range uids {
		raw, ok := envelope.Result[uid]
		if !ok {
			continue
		}
		var doc struct {
			UID     string `json:"uid"`
			Title   string `json:"title"`
			PubDate string `json:"pubdate"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		articles = append(articles, Article{
			PMID:  uid,
			Title: doc.Title,
			Year:  parsePubYear(doc.PubDate),
		})
	}
	return articles, nil
}

// get executes a rate-limited GET request.
func (c *PubMedClient) get(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pubmed API returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// parsePubYear extracts the year from an E-utilities pubdate such as
// "2021 Mar 15".
func parsePubYear(pubdate string) int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return 0
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return year
}
