package external

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/drug-repurposing-engine/internal/config"
)

// ServiceName identifies an upstream data source.
type ServiceName string

const (
	ServiceOpenTargets    ServiceName = "opentargets"
	ServiceChEMBL         ServiceName = "chembl"
	ServiceDGIdb          ServiceName = "dgidb"
	ServiceClinicalTrials ServiceName = "clinicaltrials"
	ServicePubMed         ServiceName = "pubmed"
	ServiceOpenFDA        ServiceName = "openfda"
)

// DiseaseDirectory resolves disease names to identifiers and gene
// association profiles.
type DiseaseDirectory interface {
	SearchDiseases(ctx context.Context, query string, limit int) ([]DiseaseHit, error)
	DiseaseAssociations(ctx context.Context, diseaseID string, limit int) (*DiseaseAssociations, error)
}

// DrugCorpusSource provides the universe of approved drugs.
type DrugCorpusSource interface {
	BuildCorpus(ctx context.Context, limit int) ([]DrugEntry, error)
}

// InteractionSource maps genes to the drugs known to interact with them.
type InteractionSource interface {
	InteractionsForGenes(ctx context.Context, genes []string) ([]GeneInteraction, error)
}

// TrialSource exposes clinical trial registry lookups.
type TrialSource interface {
	ConditionTrialCount(ctx context.Context, condition string) (int, error)
	PairTrials(ctx context.Context, drug, condition string) (*TrialStats, error)
}

// LiteratureSource exposes biomedical literature search.
type LiteratureSource interface {
	SearchArticles(ctx context.Context, term string, retmax int) (*LiteratureResult, error)
}

// SafetySource exposes post-market adverse event data.
type SafetySource interface {
	AdverseEventProfile(ctx context.Context, drug string) (*SafetyProfile, error)
}

// newLimiter builds a request rate limiter from source configuration.
func newLimiter(cfg config.SourceConfig) *rate.Limiter {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 1
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}
