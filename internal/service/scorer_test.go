package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/domain"
)

func defaultScorer() *Scorer {
	return NewScorer(config.ScoringConfig{
		GeneWeight:       0.6,
		PathwayWeight:    0.4,
		HighConfidence:   0.7,
		MediumConfidence: 0.5,
	}, testLogger())
}

func stubWith(name string, genes, pathways []string) CandidateStub {
	return CandidateStub{
		Record:         domain.DrugRecord{Name: name},
		SharedGenes:    genes,
		SharedPathways: pathways,
	}
}

func TestScoreEvidenceWeighted(t *testing.T) {
	disease := parkinsonDisease() // weights sum to 2.5
	scorer := defaultScorer()

	c := scorer.Score(disease, stubWith("NILOTINIB",
		[]string{"LRRK2"},
		[]string{"Autophagy", "Mitochondrial function", "Vesicle trafficking"}))

	assert.InDelta(t, 0.8/2.5, c.GeneTargetScore, 1e-9)
	assert.InDelta(t, 3.0/9.0, c.PathwayOverlapScore, 1e-9)
	assert.InDelta(t, 0.6*(0.8/2.5)+0.4*(3.0/9.0), c.CompositeScore, 1e-9)
	assert.Equal(t, domain.ConfidenceLow, c.Confidence)
}

func TestScoreUnweightedFallback(t *testing.T) {
	disease := parkinsonDisease()
	disease.GeneScores = nil // no per-gene evidence: plain overlap ratio
	scorer := defaultScorer()

	c := scorer.Score(disease, stubWith("X", []string{"SNCA", "LRRK2"}, nil))

	assert.InDelta(t, 2.0/4.0, c.GeneTargetScore, 1e-9)
	assert.Zero(t, c.PathwayOverlapScore)
	assert.InDelta(t, 0.3, c.CompositeScore, 1e-9)
}

func TestScoreNoGenesDisease(t *testing.T) {
	disease := &domain.Disease{Name: "Unknown", Pathways: []string{"General cellular signaling"}}
	scorer := defaultScorer()

	c := scorer.Score(disease, stubWith("X", nil, []string{"General cellular signaling"}))

	assert.Zero(t, c.GeneTargetScore)
	assert.InDelta(t, 1.0, c.PathwayOverlapScore, 1e-9)
	assert.InDelta(t, 0.4, c.CompositeScore, 1e-9)
}

func TestConfidenceBoundaries(t *testing.T) {
	scorer := defaultScorer()

	tests := []struct {
		composite float64
		want      domain.Confidence
	}{
		{0.71, domain.ConfidenceHigh},
		{0.7, domain.ConfidenceHigh}, // boundary is inclusive
		{0.699999, domain.ConfidenceMedium},
		{0.5, domain.ConfidenceMedium}, // boundary is inclusive
		{0.499999, domain.ConfidenceLow},
		{0, domain.ConfidenceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scorer.confidence(tt.composite), "composite %v", tt.composite)
	}
}

func TestRankOrdersAndTruncates(t *testing.T) {
	disease := parkinsonDisease()
	disease.GeneScores = nil
	scorer := defaultScorer()

	// Identical shared sets produce tied composites; the tie breaks by
	// drug name ascending.
	stubs := []CandidateStub{
		stubWith("ZETA", []string{"SNCA"}, nil),
		stubWith("ALPHA", []string{"SNCA"}, nil),
		stubWith("STRONG", []string{"SNCA", "LRRK2", "GBA", "PRKN"}, parkinsonDisease().Pathways),
		stubWith("MIDDLE", []string{"SNCA", "LRRK2"}, nil),
	}

	ranked := scorer.Rank(disease, stubs, 0, 0)
	require.Len(t, ranked, 4)
	assert.Equal(t, "STRONG", ranked[0].DrugName)
	assert.Equal(t, "MIDDLE", ranked[1].DrugName)
	assert.Equal(t, "ALPHA", ranked[2].DrugName)
	assert.Equal(t, "ZETA", ranked[3].DrugName)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].CompositeScore, ranked[i].CompositeScore)
	}

	truncated := scorer.Rank(disease, stubs, 0, 2)
	require.Len(t, truncated, 2)
	assert.Equal(t, "STRONG", truncated[0].DrugName)
	assert.Equal(t, "MIDDLE", truncated[1].DrugName)
}

func TestRankAppliesMinScore(t *testing.T) {
	disease := parkinsonDisease()
	disease.GeneScores = nil
	scorer := defaultScorer()

	stubs := []CandidateStub{
		stubWith("WEAK", nil, []string{"Autophagy"}),                  // composite ~0.044
		stubWith("OK", []string{"SNCA", "LRRK2", "GBA", "PRKN"}, nil), // composite 0.6
	}

	ranked := scorer.Rank(disease, stubs, 0.2, 10)
	require.Len(t, ranked, 1)
	assert.Equal(t, "OK", ranked[0].DrugName)
	for _, c := range ranked {
		assert.GreaterOrEqual(t, c.CompositeScore, 0.2)
	}
}

func TestRankHighThresholdYieldsEmpty(t *testing.T) {
	disease := parkinsonDisease()
	scorer := defaultScorer()

	stubs := []CandidateStub{
		stubWith("NILOTINIB", []string{"LRRK2"}, []string{"Autophagy"}),
	}

	ranked := scorer.Rank(disease, stubs, 0.99, 10)
	assert.Empty(t, ranked, "an empty ranking is a valid outcome, not an error")
}

func TestNewScorerDefaultsZeroConfig(t *testing.T) {
	scorer := NewScorer(config.ScoringConfig{}, testLogger())

	assert.InDelta(t, 0.6, scorer.geneWeight, 1e-9)
	assert.InDelta(t, 0.4, scorer.pathwayWeight, 1e-9)
	assert.Equal(t, domain.ConfidenceHigh, scorer.confidence(0.7))
	assert.Equal(t, domain.ConfidenceMedium, scorer.confidence(0.5))
}
