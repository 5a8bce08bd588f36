package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/domain"
)

// ResilientClient wraps all upstream clients with circuit breakers and
// response caching. When a breaker is open, cached data is served if
// available.
type ResilientClient struct {
	openTargets *OpenTargetsClient
	chembl      *ChEMBLClient
	dgidb       *DGIdbClient
	trials      *ClinicalTrialsClient
	pubmed      *PubMedClient
	openfda     *OpenFDAClient

	cache  *CacheClient
	ttl    config.CacheConfig
	logger *logrus.Logger

	openTargetsBreaker *gobreaker.CircuitBreaker
	chemblBreaker      *gobreaker.CircuitBreaker
	dgidbBreaker       *gobreaker.CircuitBreaker
	trialsBreaker      *gobreaker.CircuitBreaker
	pubmedBreaker      *gobreaker.CircuitBreaker
	openfdaBreaker     *gobreaker.CircuitBreaker
}

// NewResilientClient creates the resilient upstream gateway. The cache
// client may be nil, in which case every lookup goes to the source.
func NewResilientClient(
	sources config.SourcesConfig,
	breakerCfg config.BreakerConfig,
	cacheCfg config.CacheConfig,
	cacheClient *CacheClient,
	logger *logrus.Logger,
) *ResilientClient {
	return &ResilientClient{
		openTargets: NewOpenTargetsClient(sources.OpenTargets),
		chembl:      NewChEMBLClient(sources.ChEMBL),
		dgidb:       NewDGIdbClient(sources.DGIdb),
		trials:      NewClinicalTrialsClient(sources.ClinicalTrials),
		pubmed:      NewPubMedClient(sources.PubMed),
		openfda:     NewOpenFDAClient(sources.OpenFDA),

		cache:  cacheClient,
		ttl:    cacheCfg,
		logger: logger,

		openTargetsBreaker: newBreaker("Open Targets", breakerCfg, logger),
		chemblBreaker:      newBreaker("ChEMBL", breakerCfg, logger),
		dgidbBreaker:       newBreaker("DGIdb", breakerCfg, logger),
		trialsBreaker:      newBreaker("ClinicalTrials.gov", breakerCfg, logger),
		pubmedBreaker:      newBreaker("PubMed", breakerCfg, logger),
		openfdaBreaker:     newBreaker("openFDA", breakerCfg, logger),
	}
}

// newBreaker creates a circuit breaker with shared settings.
func newBreaker(name string, cfg config.BreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 60 * time.Second
	}
	maxRequests := cfg.HalfOpenRequests
	if maxRequests == 0 {
		maxRequests = 1
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    30 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// isBreakerOpen reports whether the error came from an open or
// saturated half-open breaker.
func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// SearchDiseases searches Open Targets for diseases matching the query.
func (r *ResilientClient) SearchDiseases(ctx context.Context, query string, limit int) ([]DiseaseHit, error) {
	result, err := r.openTargetsBreaker.Execute(func() (interface{}, error) {
		return r.openTargets.SearchDiseases(ctx, query, limit)
	})
	if err != nil {
		if isBreakerOpen(err) {
			return nil, domain.NewUpstreamUnavailable("Open Targets").WithCause(err)
		}
		return nil, fmt.Errorf("open targets search failed: %w", err)
	}
	return result.([]DiseaseHit), nil
}

// DiseaseAssociations retrieves the gene association profile for a
// disease, cache first.
func (r *ResilientClient) DiseaseAssociations(ctx context.Context, diseaseID string, limit int) (*DiseaseAssociations, error) {
	if r.cache != nil {
		if cached, found, err := r.cache.GetDiseaseAssociations(ctx, diseaseID); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.openTargetsBreaker.Execute(func() (interface{}, error) {
		return r.openTargets.DiseaseAssociations(ctx, diseaseID, limit)
	})
	if err != nil {
		if isBreakerOpen(err) {
			if cached, ok := r.staleAssociations(ctx, diseaseID); ok {
				return cached, nil
			}
			return nil, domain.NewUpstreamUnavailable("Open Targets").WithCause(err)
		}
		return nil, fmt.Errorf("open targets associations query failed: %w", err)
	}

	associations := result.(*DiseaseAssociations)
	if r.cache != nil {
		if cacheErr := r.cache.SetDiseaseAssociations(ctx, diseaseID, associations, r.ttl.DiseaseTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache disease associations")
		}
	}
	return associations, nil
}

func (r *ResilientClient) staleAssociations(ctx context.Context, diseaseID string) (*DiseaseAssociations, bool) {
	if r.cache == nil {
		return nil, false
	}
	cached, found, err := r.cache.GetDiseaseAssociationsStale(ctx, diseaseID)
	if err != nil || !found {
		return nil, false
	}
	r.logger.WithField("disease_id", diseaseID).Warn("Serving cached associations, circuit breaker open")
	return cached, true
}

// DrugCorpus retrieves the approved-drug corpus, cache first.
func (r *ResilientClient) DrugCorpus(ctx context.Context, limit int) ([]DrugEntry, error) {
	if r.cache != nil {
		if cached, found, err := r.cache.GetDrugCorpus(ctx); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.chemblBreaker.Execute(func() (interface{}, error) {
		return r.chembl.BuildCorpus(ctx, limit)
	})
	if err != nil {
		if isBreakerOpen(err) {
			if r.cache != nil {
				if cached, found, cacheErr := r.cache.GetDrugCorpusStale(ctx); cacheErr == nil && found {
					r.logger.Warn("Serving cached drug corpus, circuit breaker open")
					return cached, nil
				}
			}
			return nil, domain.NewUpstreamUnavailable("ChEMBL").WithCause(err)
		}
		return nil, fmt.Errorf("chembl corpus build failed: %w", err)
	}

	corpus := result.([]DrugEntry)
	if r.cache != nil {
		if cacheErr := r.cache.SetDrugCorpus(ctx, corpus, r.ttl.CorpusTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache drug corpus")
		}
	}
	return corpus, nil
}

// GeneInteractions retrieves drug interactions for a gene set, cache
// first.
func (r *ResilientClient) GeneInteractions(ctx context.Context, genes []string) ([]GeneInteraction, error) {
	if len(genes) == 0 {
		return nil, nil
	}

	if r.cache != nil {
		if cached, found, err := r.cache.GetInteractions(ctx, genes); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.dgidbBreaker.Execute(func() (interface{}, error) {
		return r.dgidb.InteractionsForGenes(ctx, genes)
	})
	if err != nil {
		if isBreakerOpen(err) {
			if r.cache != nil {
				if cached, found, cacheErr := r.cache.GetInteractionsStale(ctx, genes); cacheErr == nil && found {
					r.logger.Warn("Serving cached interactions, circuit breaker open")
					return cached, nil
				}
			}
			return nil, domain.NewUpstreamUnavailable("DGIdb").WithCause(err)
		}
		return nil, fmt.Errorf("dgidb interactions query failed: %w", err)
	}

	interactions := result.([]GeneInteraction)
	if r.cache != nil {
		if cacheErr := r.cache.SetInteractions(ctx, genes, interactions, r.ttl.CorpusTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache gene interactions")
		}
	}
	return interactions, nil
}

// ConditionTrialCount returns the number of active trials for a
// condition, cache first.
func (r *ResilientClient) ConditionTrialCount(ctx context.Context, condition string) (int, error) {
	if r.cache != nil {
		if cached, found, err := r.cache.GetConditionTrialCount(ctx, condition); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.trialsBreaker.Execute(func() (interface{}, error) {
		return r.trials.ConditionTrialCount(ctx, condition)
	})
	if err != nil {
		if isBreakerOpen(err) {
			return 0, domain.NewUpstreamUnavailable("ClinicalTrials.gov").WithCause(err)
		}
		return 0, fmt.Errorf("trial count query failed: %w", err)
	}

	count := result.(int)
	if r.cache != nil {
		if cacheErr := r.cache.SetConditionTrialCount(ctx, condition, count, r.ttl.DiseaseTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache trial count")
		}
	}
	return count, nil
}

// PairTrials summarizes registry activity for a drug-condition pair,
// cache first.
func (r *ResilientClient) PairTrials(ctx context.Context, drug, condition string) (*TrialStats, error) {
	if r.cache != nil {
		if cached, found, err := r.cache.GetTrialStats(ctx, drug, condition); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.trialsBreaker.Execute(func() (interface{}, error) {
		return r.trials.PairTrials(ctx, drug, condition)
	})
	if err != nil {
		if isBreakerOpen(err) {
			return nil, domain.NewUpstreamUnavailable("ClinicalTrials.gov").WithCause(err)
		}
		return nil, fmt.Errorf("pair trials query failed: %w", err)
	}

	stats := result.(*TrialStats)
	if r.cache != nil {
		if cacheErr := r.cache.SetTrialStats(ctx, drug, condition, stats, r.ttl.ValidationTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache trial stats")
		}
	}
	return stats, nil
}

// PairLiterature searches PubMed for literature on a drug-disease pair,
// cache first.
func (r *ResilientClient) PairLiterature(ctx context.Context, drug, disease string) (*LiteratureResult, error) {
	term := fmt.Sprintf("(%s) AND (%s)", drug, disease)

	if r.cache != nil {
		if cached, found, err := r.cache.GetLiterature(ctx, term); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.pubmedBreaker.Execute(func() (interface{}, error) {
		return r.pubmed.SearchArticles(ctx, term, 5)
	})
	if err != nil {
		if isBreakerOpen(err) {
			return nil, domain.NewUpstreamUnavailable("PubMed").WithCause(err)
		}
		return nil, fmt.Errorf("pubmed query failed: %w", err)
	}

	literature := result.(*LiteratureResult)
	if r.cache != nil {
		if cacheErr := r.cache.SetLiterature(ctx, term, literature, r.ttl.ValidationTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache literature result")
		}
	}
	return literature, nil
}

// DrugSafetyProfile summarizes post-market safety data for a drug,
// cache first.
func (r *ResilientClient) DrugSafetyProfile(ctx context.Context, drug string) (*SafetyProfile, error) {
	if r.cache != nil {
		if cached, found, err := r.cache.GetSafetyProfile(ctx, drug); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.openfdaBreaker.Execute(func() (interface{}, error) {
		return r.openfda.AdverseEventProfile(ctx, drug)
	})
	if err != nil {
		if isBreakerOpen(err) {
			return nil, domain.NewUpstreamUnavailable("openFDA").WithCause(err)
		}
		return nil, fmt.Errorf("openfda query failed: %w", err)
	}

	profile := result.(*SafetyProfile)
	if r.cache != nil {
		if cacheErr := r.cache.SetSafetyProfile(ctx, drug, profile, r.ttl.ValidationTTL); cacheErr != nil {
			r.logger.WithError(cacheErr).Warn("Failed to cache safety profile")
		}
	}
	return profile, nil
}

// EvidenceBundle aggregates the evidence gathered for one candidate
// validation. A nil field means that source failed or had nothing.
type EvidenceBundle struct {
	Trials       *TrialStats
	Literature   *LiteratureResult
	Safety       *SafetyProfile
	Interactions []GeneInteraction
	GatheredAt   time.Time
}

// GatherValidationEvidence queries trials, literature, safety, and
// interaction sources concurrently. It fails only when every lookup
// failed.
func (r *ResilientClient) GatherValidationEvidence(ctx context.Context, drug, disease string, genes []string) (*EvidenceBundle, error) {
	bundle := &EvidenceBundle{GatheredAt: time.Now()}

	type result struct {
		trials       *TrialStats
		literature   *LiteratureResult
		safety       *SafetyProfile
		interactions []GeneInteraction

		trialsErr       error
		literatureErr   error
		safetyErr       error
		interactionsErr error
	}

	results := make(chan result, 1)

	go func() {
		res := result{}
		done := make(chan struct{})

		go func() {
			res.trials, res.trialsErr = r.PairTrials(ctx, drug, disease)
			done <- struct{}{}
		}()
		go func() {
			res.literature, res.literatureErr = r.PairLiterature(ctx, drug, disease)
			done <- struct{}{}
		}()
		go func() {
			res.safety, res.safetyErr = r.DrugSafetyProfile(ctx, drug)
			done <- struct{}{}
		}()
		go func() {
			res.interactions, res.interactionsErr = r.GeneInteractions(ctx, genes)
			done <- struct{}{}
		}()

		for i := 0; i < 4; i++ {
			<-done
		}
		results <- res
	}()

	select {
	case res := <-results:
		if res.trialsErr == nil {
			bundle.Trials = res.trials
		}
		if res.literatureErr == nil {
			bundle.Literature = res.literature
		}
		if res.safetyErr == nil {
			bundle.Safety = res.safety
		}
		if res.interactionsErr == nil {
			bundle.Interactions = res.interactions
		}

		allFailed := res.trialsErr != nil && res.literatureErr != nil &&
			res.safetyErr != nil && res.interactionsErr != nil
		if allFailed {
			return nil, fmt.Errorf("all evidence lookups failed: trials=%v, literature=%v, safety=%v, interactions=%v",
				res.trialsErr, res.literatureErr, res.safetyErr, res.interactionsErr)
		}
		return bundle, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BreakerStates returns the current state of all circuit breakers.
func (r *ResilientClient) BreakerStates() map[string]gobreaker.State {
	return map[string]gobreaker.State{
		"opentargets":    r.openTargetsBreaker.State(),
		"chembl":         r.chemblBreaker.State(),
		"dgidb":          r.dgidbBreaker.State(),
		"clinicaltrials": r.trialsBreaker.State(),
		"pubmed":         r.pubmedBreaker.State(),
		"openfda":        r.openfdaBreaker.State(),
	}
}

// BreakerCounts returns request statistics for all circuit breakers.
func (r *ResilientClient) BreakerCounts() map[string]gobreaker.Counts {
	return map[string]gobreaker.Counts{
		"opentargets":    r.openTargetsBreaker.Counts(),
		"chembl":         r.chemblBreaker.Counts(),
		"dgidb":          r.dgidbBreaker.Counts(),
		"clinicaltrials": r.trialsBreaker.Counts(),
		"pubmed":         r.pubmedBreaker.Counts(),
		"openfda":        r.openfdaBreaker.Counts(),
	}
}

// HealthCheck reports per-source health derived from breaker states,
// plus cache connectivity.
func (r *ResilientClient) HealthCheck(ctx context.Context) map[string]bool {
	health := make(map[string]bool)
	for name, state := range r.BreakerStates() {
		health[name] = state == gobreaker.StateClosed
	}
	if r.cache != nil {
		health["cache"] = r.cache.Ping(ctx) == nil
	}
	return health
}

// InvalidateDisease removes cached data for a disease.
func (r *ResilientClient) InvalidateDisease(ctx context.Context, diseaseID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.InvalidateDisease(ctx, diseaseID)
}

// FlushCache removes all cached upstream responses.
func (r *ResilientClient) FlushCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.FlushAll(ctx)
}

// Close closes the cache connection.
func (r *ResilientClient) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}
