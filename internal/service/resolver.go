// Package service implements the scoring pipeline: disease resolution,
// candidate generation, contraindication filtering, scoring and clinical
// validation, plus the orchestrator that assembles one analysis response.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/cache"
	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/pkg/external"
	"github.com/drug-repurposing-engine/pkg/medname"
)

const (
	// Search hits below this similarity never resolve; the user gets a
	// not-found outcome with a spelling suggestion instead of a wrong
	// disease.
	similarityThreshold = 0.55

	searchHitLimit    = 5
	associationLimit  = 25
	defaultDiseaseTTL = 24 * time.Hour

	// Associations weaker than this are noise for overlap scoring.
	geneScoreCutoff = 0.1
)

// ResolverGateway is the slice of the evidence client the resolver uses.
type ResolverGateway interface {
	SearchDiseases(ctx context.Context, query string, limit int) ([]external.DiseaseHit, error)
	DiseaseAssociations(ctx context.Context, diseaseID string, limit int) (*external.DiseaseAssociations, error)
	ConditionTrialCount(ctx context.Context, condition string) (int, error)
}

// DiseaseResolver maps free-text disease names to canonical Disease
// records. Resolution is case-insensitive and tolerant of misspellings;
// resolved records are cached by normalized name with concurrent
// identical lookups coalesced into one upstream fetch.
type DiseaseResolver struct {
	logger  *logrus.Logger
	gateway ResolverGateway
	library *curated.Library
	loader  *cache.CoalescingLoader
	ttl     time.Duration
}

// NewDiseaseResolver builds a resolver. The cache loader may be nil, in
// which case every resolution goes upstream.
func NewDiseaseResolver(gateway ResolverGateway, library *curated.Library, loader *cache.CoalescingLoader, ttl time.Duration, logger *logrus.Logger) *DiseaseResolver {
	if ttl <= 0 {
		ttl = defaultDiseaseTTL
	}
	return &DiseaseResolver{
		logger:  logger,
		gateway: gateway,
		library: library,
		loader:  loader,
		ttl:     ttl,
	}
}

// Resolve maps a free-text disease name to a Disease record. A name no
// hit matches closely enough yields a recoverable not-found error.
func (r *DiseaseResolver) Resolve(ctx context.Context, name string) (*domain.Disease, error) {
	normalized := medname.Normalize(name)
	if normalized == "" {
		return nil, domain.NewInvalidInput("disease_name", "disease name is required")
	}

	if r.loader == nil {
		return r.resolveUpstream(ctx, name, normalized)
	}

	var resolveErr error
	raw, err := r.loader.Load(cache.Key("disease", normalized), r.ttl, func() ([]byte, error) {
		disease, err := r.resolveUpstream(ctx, name, normalized)
		if err != nil {
			// Recoverable outcomes are not cached; the user may retry
			// with the same text after fixing upstream conditions.
			resolveErr = err
			return nil, err
		}
		return json.Marshal(disease)
	})
	if err != nil {
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, err
	}

	var disease domain.Disease
	if err := json.Unmarshal(raw, &disease); err != nil {
		return nil, fmt.Errorf("decode cached disease: %w", err)
	}
	return &disease, nil
}

// Search returns raw disease hits for autocomplete. On upstream failure
// it degrades to the curated suggestion list so the search box keeps
// working while sources are down.
func (r *DiseaseResolver) Search(ctx context.Context, query string, limit int) ([]external.DiseaseHit, error) {
	if medname.Normalize(query) == "" {
		return nil, domain.NewInvalidInput("query", "search query is required")
	}
	if limit <= 0 {
		limit = searchHitLimit
	}

	hits, err := r.gateway.SearchDiseases(ctx, query, limit)
	if err != nil {
		r.logger.WithError(err).WithField("query", query).Warn("Disease search degraded to curated suggestions")
		var fallback []external.DiseaseHit
		for _, name := range r.library.Suggest(query, limit) {
			fallback = append(fallback, external.DiseaseHit{Name: name})
		}
		return fallback, nil
	}
	return hits, nil
}

func (r *DiseaseResolver) resolveUpstream(ctx context.Context, name, normalized string) (*domain.Disease, error) {
	hits, err := r.gateway.SearchDiseases(ctx, name, searchHitLimit)
	if err != nil {
		if engineErr, ok := domain.AsEngineError(err); ok {
			return nil, engineErr
		}
		return nil, domain.NewUpstreamUnavailable("Open Targets").WithCause(err)
	}

	assoc, err := r.pickHit(ctx, name, normalized, hits)
	if err != nil {
		return nil, err
	}

	genes := make([]string, 0, len(assoc.Targets))
	geneScores := make(map[string]float64, len(assoc.Targets))
	for _, t := range assoc.Targets {
		if t.Score <= geneScoreCutoff {
			continue
		}
		genes = append(genes, t.Symbol)
		geneScores[t.Symbol] = t.Score
	}

	disease := &domain.Disease{
		ID:          assoc.ID,
		Name:        assoc.Name,
		Description: assoc.Description,
		Genes:       genes,
		GeneScores:  geneScores,
		Pathways:    r.library.PathwaysFor(genes),
		IsRare:      r.library.IsRare(assoc.Name, assoc.Description),
	}

	// Trial volume is display enrichment only; a failed count is zero,
	// not an error.
	trials, err := r.gateway.ConditionTrialCount(ctx, assoc.Name)
	if err != nil {
		r.logger.WithError(err).WithField("disease", assoc.Name).Warn("Active trial count unavailable")
	} else {
		disease.ActiveTrials = trials
	}

	r.logger.WithFields(logrus.Fields{
		"query":    name,
		"disease":  disease.Name,
		"genes":    len(disease.Genes),
		"pathways": len(disease.Pathways),
	}).Info("Disease resolved")

	return disease, nil
}

// pickHit selects the best search hit: an exact normalized-name match
// wins outright; otherwise the most similar hit above the threshold,
// ties broken by association count, then name. Association profiles are
// fetched during picking so the winner's profile is returned directly.
func (r *DiseaseResolver) pickHit(ctx context.Context, name, normalized string, hits []external.DiseaseHit) (*external.DiseaseAssociations, error) {
	if len(hits) == 0 {
		return nil, domain.NewDiseaseNotFound(name)
	}

	for _, hit := range hits {
		if medname.Normalize(hit.Name) == normalized {
			return r.associations(ctx, hit)
		}
	}

	type scoredHit struct {
		hit external.DiseaseHit
		sim float64
	}
	var scored []scoredHit
	for _, hit := range hits {
		if sim := medname.Similarity(name, hit.Name); sim >= similarityThreshold {
			scored = append(scored, scoredHit{hit, sim})
		}
	}
	if len(scored) == 0 {
		return nil, domain.NewDiseaseNotFound(name)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].sim != scored[j].sim {
			return scored[i].sim > scored[j].sim
		}
		return scored[i].hit.Name < scored[j].hit.Name
	})

	leaders := []scoredHit{scored[0]}
	for _, s := range scored[1:] {
		if s.sim != scored[0].sim {
			break
		}
		leaders = append(leaders, s)
	}
	if len(leaders) == 1 {
		return r.associations(ctx, leaders[0].hit)
	}

	// Equal similarity: the hit with the larger association profile is
	// the better-characterized disease.
	var best *external.DiseaseAssociations
	var firstErr error
	for _, leader := range leaders {
		assoc, err := r.associations(ctx, leader.hit)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if best == nil || assoc.TotalCount > best.TotalCount {
			best = assoc
		}
	}
	if best == nil {
		return nil, firstErr
	}
	return best, nil
}

func (r *DiseaseResolver) associations(ctx context.Context, hit external.DiseaseHit) (*external.DiseaseAssociations, error) {
	assoc, err := r.gateway.DiseaseAssociations(ctx, hit.ID, associationLimit)
	if err != nil {
		if engineErr, ok := domain.AsEngineError(err); ok {
			return nil, engineErr
		}
		return nil, domain.NewUpstreamUnavailable("Open Targets").WithCause(err)
	}
	if assoc.Description == "" {
		assoc.Description = hit.Description
	}
	return assoc, nil
}
