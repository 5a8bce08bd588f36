package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// staleGrace keeps entries in Redis past their logical expiry so
// breaker-open reads can serve them while the upstream recovers.
const staleGrace = 24 * time.Hour

// CacheClient wraps Redis with typed caching for upstream API responses.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client and verifies connectivity.
func NewCacheClient(redisURL string, defaultTTL time.Duration) (*CacheClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: defaultTTL,
	}, nil
}

// cachedEntry wraps a cached payload with its lifetime metadata.
type cachedEntry struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// GetDiseaseAssociations retrieves a cached gene association profile.
func (c *CacheClient) GetDiseaseAssociations(ctx context.Context, diseaseID string) (*DiseaseAssociations, bool, error) {
	var associations DiseaseAssociations
	found, err := c.getJSON(ctx, c.diseaseKey(diseaseID), &associations)
	if err != nil || !found {
		return nil, false, err
	}
	return &associations, true, nil
}

// GetDiseaseAssociationsStale retrieves a cached gene association
// profile even past its logical expiry.
func (c *CacheClient) GetDiseaseAssociationsStale(ctx context.Context, diseaseID string) (*DiseaseAssociations, bool, error) {
	var associations DiseaseAssociations
	found, err := c.getJSONStale(ctx, c.diseaseKey(diseaseID), &associations)
	if err != nil || !found {
		return nil, false, err
	}
	return &associations, true, nil
}

// SetDiseaseAssociations caches a gene association profile.
func (c *CacheClient) SetDiseaseAssociations(ctx context.Context, diseaseID string, data *DiseaseAssociations, ttl time.Duration) error {
	return c.setJSON(ctx, c.diseaseKey(diseaseID), data, ttl)
}

// GetDrugCorpus retrieves the cached approved-drug corpus.
func (c *CacheClient) GetDrugCorpus(ctx context.Context) ([]DrugEntry, bool, error) {
	var corpus []DrugEntry
	found, err := c.getJSON(ctx, c.key("chembl", "corpus"), &corpus)
	if err != nil || !found {
		return nil, false, err
	}
	return corpus, true, nil
}

// GetDrugCorpusStale retrieves the cached corpus even past its logical
// expiry.
func (c *CacheClient) GetDrugCorpusStale(ctx context.Context) ([]DrugEntry, bool, error) {
	var corpus []DrugEntry
	found, err := c.getJSONStale(ctx, c.key("chembl", "corpus"), &corpus)
	if err != nil || !found {
		return nil, false, err
	}
	return corpus, true, nil
}

// SetDrugCorpus caches the approved-drug corpus.
func (c *CacheClient) SetDrugCorpus(ctx context.Context, corpus []DrugEntry, ttl time.Duration) error {
	return c.setJSON(ctx, c.key("chembl", "corpus"), corpus, ttl)
}

// GetInteractions retrieves cached drug-gene interactions for a gene set.
func (c *CacheClient) GetInteractions(ctx context.Context, genes []string) ([]GeneInteraction, bool, error) {
	var interactions []GeneInteraction
	found, err := c.getJSON(ctx, c.geneSetKey(genes), &interactions)
	if err != nil || !found {
		return nil, false, err
	}
	return interactions, true, nil
}

// GetInteractionsStale retrieves cached interactions even past their
// logical expiry.
func (c *CacheClient) GetInteractionsStale(ctx context.Context, genes []string) ([]GeneInteraction, bool, error) {
	var interactions []GeneInteraction
	found, err := c.getJSONStale(ctx, c.geneSetKey(genes), &interactions)
	if err != nil || !found {
		return nil, false, err
	}
	return interactions, true, nil
}

// SetInteractions caches drug-gene interactions for a gene set.
func (c *CacheClient) SetInteractions(ctx context.Context, genes []string, data []GeneInteraction, ttl time.Duration) error {
	return c.setJSON(ctx, c.geneSetKey(genes), data, ttl)
}

// GetConditionTrialCount retrieves a cached registry count for a condition.
func (c *CacheClient) GetConditionTrialCount(ctx context.Context, condition string) (int, bool, error) {
	var count int
	found, err := c.getJSON(ctx, c.key("trials", "condition", condition), &count)
	if err != nil || !found {
		return 0, false, err
	}
	return count, true, nil
}

// SetConditionTrialCount caches a registry count for a condition.
func (c *CacheClient) SetConditionTrialCount(ctx context.Context, condition string, count int, ttl time.Duration) error {
	return c.setJSON(ctx, c.key("trials", "condition", condition), count, ttl)
}

// GetTrialStats retrieves cached trial statistics for a drug-condition pair.
func (c *CacheClient) GetTrialStats(ctx context.Context, drug, condition string) (*TrialStats, bool, error) {
	var stats TrialStats
	found, err := c.getJSON(ctx, c.key("trials", "pair", drug, condition), &stats)
	if err != nil || !found {
		return nil, false, err
	}
	return &stats, true, nil
}

// SetTrialStats caches trial statistics for a drug-condition pair.
func (c *CacheClient) SetTrialStats(ctx context.Context, drug, condition string, stats *TrialStats, ttl time.Duration) error {
	return c.setJSON(ctx, c.key("trials", "pair", drug, condition), stats, ttl)
}

// GetLiterature retrieves a cached literature search result.
func (c *CacheClient) GetLiterature(ctx context.Context, term string) (*LiteratureResult, bool, error) {
	var result LiteratureResult
	found, err := c.getJSON(ctx, c.key("pubmed", term), &result)
	if err != nil || !found {
		return nil, false, err
	}
	return &result, true, nil
}

// SetLiterature caches a literature search result.
func (c *CacheClient) SetLiterature(ctx context.Context, term string, result *LiteratureResult, ttl time.Duration) error {
	return c.setJSON(ctx, c.key("pubmed", term), result, ttl)
}

// GetSafetyProfile retrieves a cached safety profile.
func (c *CacheClient) GetSafetyProfile(ctx context.Context, drug string) (*SafetyProfile, bool, error) {
	var profile SafetyProfile
	found, err := c.getJSON(ctx, c.key("openfda", drug), &profile)
	if err != nil || !found {
		return nil, false, err
	}
	return &profile, true, nil
}

// SetSafetyProfile caches a safety profile.
func (c *CacheClient) SetSafetyProfile(ctx context.Context, drug string, profile *SafetyProfile, ttl time.Duration) error {
	return c.setJSON(ctx, c.key("openfda", drug), profile, ttl)
}

// InvalidateDisease removes cached data for a disease.
func (c *CacheClient) InvalidateDisease(ctx context.Context, diseaseID string) error {
	return c.redis.Del(ctx, c.diseaseKey(diseaseID)).Err()
}

// getJSON retrieves and unwraps a cached entry. A logically expired
// entry is a miss but stays in Redis for breaker-open stale reads; a
// corrupted entry is deleted.
func (c *CacheClient) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	return c.read(ctx, key, dest, false)
}

// getJSONStale retrieves a cached entry ignoring its logical expiry.
func (c *CacheClient) getJSONStale(ctx context.Context, key string, dest interface{}) (bool, error) {
	return c.read(ctx, key, dest, true)
}

func (c *CacheClient) read(ctx context.Context, key string, dest interface{}, allowStale bool) (bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry cachedEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		c.redis.Del(ctx, key)
		return false, nil
	}
	if !allowStale && time.Now().After(entry.ExpiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.Data, dest); err != nil {
		c.redis.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// setJSON wraps and stores a cache entry. The Redis TTL extends past
// the logical expiry by staleGrace.
func (c *CacheClient) setJSON(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	entry := cachedEntry{
		Data:      data,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl+staleGrace).Err()
}

// diseaseKey creates the cache key for a disease association profile.
func (c *CacheClient) diseaseKey(diseaseID string) string {
	return c.key("opentargets", "associations", diseaseID)
}

// geneSetKey creates an order-independent cache key for a gene set.
func (c *CacheClient) geneSetKey(genes []string) string {
	sorted := make([]string, len(genes))
	copy(sorted, genes)
	sort.Strings(sorted)
	return c.key("dgidb", sorted...)
}

// key creates a standardized cache key from its parts.
func (c *CacheClient) key(prefix string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("repurpose:%s:%x", prefix, hash[:8])
}

// Ping checks if the Redis connection is alive.
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// FlushAll removes all cache entries.
func (c *CacheClient) FlushAll(ctx context.Context) error {
	return c.redis.FlushAll(ctx).Err()
}

// Close closes the Redis connection.
func (c *CacheClient) Close() error {
	return c.redis.Close()
}
