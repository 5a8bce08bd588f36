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

// ChEMBLClient handles interactions with the ChEMBL REST API.
type ChEMBLClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewChEMBLClient creates a new ChEMBL API client.
func NewChEMBLClient(cfg config.SourceConfig) *ChEMBLClient {
	return &ChEMBLClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg),
	}
}

// DrugEntry is one approved drug from the corpus.
type DrugEntry struct {
	ChemblID   string `json:"chembl_id"`
	Name       string `json:"name"`
	MaxPhase   int    `json:"max_phase"`
	Mechanism  string `json:"mechanism"`
	Indication string `json:"indication"`
}

type chemblMoleculeResponse struct {
	Molecules []struct {
		MoleculeChemblID string `json:"molecule_chembl_id"`
		PrefName         string `json:"pref_name"`
	} `json:"molecules"`
	PageMeta struct {
		Limit      int     `json:"limit"`
		Offset     int     `json:"offset"`
		TotalCount int     `json:"total_count"`
		Next       *string `json:"next"`
	} `json:"page_meta"`
}

type chemblMechanismResponse struct {
	Mechanisms []struct {
		MoleculeChemblID  string `json:"molecule_chembl_id"`
		MechanismOfAction string `json:"mechanism_of_action"`
	} `json:"mechanisms"`
}

type chemblIndicationResponse struct {
	DrugIndications []struct {
		MoleculeChemblID string `json:"molecule_chembl_id"`
		EFOTerm          string `json:"efo_term"`
	} `json:"drug_indications"`
}

const (
	chemblPageSize  = 100
	chemblBatchSize = 50
)

// BuildCorpus assembles up to limit approved drugs, enriched with their
// primary mechanism of action and indication.
func (c *ChEMBLClient) BuildCorpus(ctx context.Context, limit int) ([]DrugEntry, error) {
	if limit <= 0 {
		limit = 500
	}

	entries, err := c.approvedMolecules(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ChemblID)
	}

	mechanisms, err := c.mechanismsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	indications, err := c.indicationsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Mechanism = mechanisms[entries[i].ChemblID]
		entries[i].Indication = indications[entries[i].ChemblID]
	}
	return entries, nil
}

// approvedMolecules pages through molecules that reached max phase 4.
func (c *ChEMBLClient) approvedMolecules(ctx context.Context, limit int) ([]DrugEntry, error) {
	entries := make([]DrugEntry, 0, limit)
	offset := 0

	for len(entries) < limit {
		params := url.Values{
			"max_phase": {"4"},
			"format":    {"json"},
			"limit":     {fmt.Sprintf("%d", chemblPageSize)},
			"offset":    {fmt.Sprintf("%d", offset)},
			"only":      {"molecule_chembl_id,pref_name"},
		}

		var page chemblMoleculeResponse
		if err := c.getJSON(ctx, fmt.Sprintf("%s/molecule.json?%s", c.baseURL, params.Encode()), &page); err != nil {
			return nil, fmt.Errorf("failed to fetch molecule page at offset %d: %w", offset, err)
		}

		for _, mol := range page.Molecules {
			if mol.PrefName == "" {
				continue
			}
			entries = append(entries, DrugEntry{
				ChemblID: mol.MoleculeChemblID,
				Name:     mol.PrefName,
				MaxPhase: 4,
			})
			if len(entries) == limit {
				break
			}
		}

		if page.PageMeta.Next == nil || len(page.Molecules) == 0 {
			break
		}
		offset += chemblPageSize
	}
	return entries, nil
}

// mechanismsFor retrieves the first recorded mechanism of action for
// each molecule, batching the lookups.
func (c *ChEMBLClient) mechanismsFor(ctx context.Context, chemblIDs []string) (map[string]string, error) {
	mechanisms := make(map[string]string, len(chemblIDs))

	for _, batch := range batchStrings(chemblIDs, chemblBatchSize) {
		params := url.Values{
			"molecule_chembl_id__in": {strings.Join(batch, ",")},
			"format":                 {"json"},
			"limit":                  {fmt.Sprintf("%d", chemblPageSize)},
		}

		var page chemblMechanismResponse
		if err := c.getJSON(ctx, fmt.Sprintf("%s/mechanism.json?%s", c.baseURL, params.Encode()), &page); err != nil {
			return nil, fmt.Errorf("failed to fetch mechanisms: %w", err)
		}
		for _, mech := range page.Mechanisms {
			if _, seen := mechanisms[mech.MoleculeChemblID]; !seen && mech.MechanismOfAction != "" {
				mechanisms[mech.MoleculeChemblID] = mech.MechanismOfAction
			}
		}
	}
	return mechanisms, nil
}

// indicationsFor retrieves the first recorded indication for each
// molecule, batching the lookups.
func (c *ChEMBLClient) indicationsFor(ctx context.Context, chemblIDs []string) (map[string]string, error) {
	indications := make(map[string]string, len(chemblIDs))

	for _, batch := range batchStrings(chemblIDs, chemblBatchSize) {
		params := url.Values{
			"molecule_chembl_id__in": {strings.Join(batch, ",")},
			"format":                 {"json"},
			"limit":                  {fmt.Sprintf("%d", chemblPageSize)},
		}

		var page chemblIndicationResponse
		if err := c.getJSON(ctx, fmt.Sprintf("%s/drug_indication.json?%s", c.baseURL, params.Encode()), &page); err != nil {
			return nil, fmt.Errorf("failed to fetch indications: %w", err)
		}
		for _, ind := range page.DrugIndications {
			if _, seen := indications[ind.MoleculeChemblID]; !seen && ind.EFOTerm != "" {
				indications[ind.MoleculeChemblID] = ind.EFOTerm
			}
		}
	}
	return indications, nil
}

// getJSON executes a rate-limited GET and decodes the JSON response.
func (c *ChEMBLClient) getJSON(ctx context.Context, fullURL string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

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
		return fmt.Errorf("chembl API returned status %d: %s", resp.StatusCode, string(body))
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

// batchStrings splits items into batches of at most size elements.
func batchStrings(items []string, size int) [][]string {
	if size <= 0 {
		return [][]string{items}
	}
	var batches [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
