package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/domain"
)

// Scorer computes per-candidate sub-scores and the composite, then
// ranks and truncates. Weights and confidence thresholds come from
// configuration and default to the documented contract values.
type Scorer struct {
	logger *logrus.Logger

	geneWeight    float64
	pathwayWeight float64
	highCutoff    float64
	mediumCutoff  float64
}

// NewScorer builds a scorer from the scoring configuration.
func NewScorer(cfg config.ScoringConfig, logger *logrus.Logger) *Scorer {
	s := &Scorer{
		logger:        logger,
		geneWeight:    cfg.GeneWeight,
		pathwayWeight: cfg.PathwayWeight,
		highCutoff:    cfg.HighConfidence,
		mediumCutoff:  cfg.MediumConfidence,
	}
	if s.geneWeight <= 0 && s.pathwayWeight <= 0 {
		s.geneWeight = 0.6
		s.pathwayWeight = 0.4
	}
	if s.highCutoff <= 0 {
		s.highCutoff = domain.ConfidenceHighThreshold
	}
	if s.mediumCutoff <= 0 {
		s.mediumCutoff = domain.ConfidenceMediumThreshold
	}
	return s
}

// Score computes one candidate from a stub.
//
// The gene score is evidence-weighted when the disease carries per-gene
// association scores: sum of shared-gene weights over the sum of all
// disease-gene weights. Without weights both sums count genes, which
// degrades to plain overlap |shared| / |genes|. The pathway score is
// plain overlap. Both are clamped to [0,1].
func (s *Scorer) Score(disease *domain.Disease, stub CandidateStub) domain.Candidate {
	var sharedWeight, totalWeight float64
	for _, gene := range stub.SharedGenes {
		sharedWeight += disease.GeneWeight(gene)
	}
	for _, gene := range disease.Genes {
		totalWeight += disease.GeneWeight(gene)
	}

	geneScore := 0.0
	if totalWeight > 0 {
		geneScore = clamp01(sharedWeight / totalWeight)
	}
	pathwayScore := clamp01(float64(len(stub.SharedPathways)) / float64(max(1, len(disease.Pathways))))
	composite := clamp01(s.geneWeight*geneScore + s.pathwayWeight*pathwayScore)

	return domain.Candidate{
		DrugName:            stub.Record.Name,
		Indication:          stub.Record.Indication,
		Mechanism:           stub.Record.Mechanism,
		SharedGenes:         stub.SharedGenes,
		SharedPathways:      stub.SharedPathways,
		GeneTargetScore:     geneScore,
		PathwayOverlapScore: pathwayScore,
		CompositeScore:      composite,
		Confidence:          s.confidence(composite),
		Sources:             stub.Record.Sources,
	}
}

// Rank scores every stub, drops candidates below minScore, sorts by
// composite descending with ties broken by drug name ascending, and
// truncates to maxResults. An empty result is a valid outcome.
func (s *Scorer) Rank(disease *domain.Disease, stubs []CandidateStub, minScore float64, maxResults int) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(stubs))
	for _, stub := range stubs {
		c := s.Score(disease, stub)
		if c.CompositeScore < minScore {
			continue
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CompositeScore != candidates[j].CompositeScore {
			return candidates[i].CompositeScore > candidates[j].CompositeScore
		}
		return candidates[i].DrugName < candidates[j].DrugName
	})

	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

func (s *Scorer) confidence(composite float64) domain.Confidence {
	switch {
	case composite >= s.highCutoff:
		return domain.ConfidenceHigh
	case composite >= s.mediumCutoff:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
