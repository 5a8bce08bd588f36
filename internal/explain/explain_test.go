package explain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/domain"
)

func TestHeuristicExplainHighConfidence(t *testing.T) {
	p := NewHeuristicProvider()

	text, err := p.Explain(context.Background(), Request{
		DrugName:       "NILOTINIB",
		DiseaseName:    "Parkinson disease",
		Mechanism:      "Tyrosine kinase inhibitor",
		Confidence:     domain.ConfidenceHigh,
		SharedGenes:    []string{"LRRK2", "ABL1"},
		SharedPathways: []string{"Autophagy"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Strong evidence suggests: targets 2 disease-associated genes (LRRK2, ABL1); "+
		"acts on 1 shared pathway (Autophagy); known mechanism: Tyrosine kinase inhibitor", text)
}

func TestHeuristicExplainPrefixes(t *testing.T) {
	p := NewHeuristicProvider()

	tests := []struct {
		confidence domain.Confidence
		prefix     string
	}{
		{domain.ConfidenceHigh, "Strong evidence suggests:"},
		{domain.ConfidenceMedium, "Moderate evidence indicates:"},
		{domain.ConfidenceLow, "Preliminary analysis suggests:"},
	}
	for _, tt := range tests {
		text, err := p.Explain(context.Background(), Request{
			DrugName:    "ASPIRIN",
			Confidence:  tt.confidence,
			SharedGenes: []string{"PTGS2"},
		})
		require.NoError(t, err)
		assert.Contains(t, text, tt.prefix)
	}
}

func TestHeuristicExplainTruncatesLongLists(t *testing.T) {
	p := NewHeuristicProvider()

	text, err := p.Explain(context.Background(), Request{
		DrugName:    "IMATINIB",
		Confidence:  domain.ConfidenceMedium,
		SharedGenes: []string{"ABL1", "KIT", "PDGFRA", "LRRK2", "DDR1", "EGFR"},
	})
	require.NoError(t, err)

	assert.Contains(t, text, "targets 6 disease-associated genes (ABL1, KIT, PDGFRA, LRRK2, and 2 more)")
}

func TestHeuristicExplainNoOverlap(t *testing.T) {
	p := NewHeuristicProvider()

	text, err := p.Explain(context.Background(), Request{
		DrugName:   "METFORMIN",
		Confidence: domain.ConfidenceLow,
	})
	require.NoError(t, err)

	assert.Equal(t, "Preliminary analysis suggests: limited overlap with known disease biology", text)
}

func TestHeuristicDeterministic(t *testing.T) {
	p := NewHeuristicProvider()
	req := Request{
		DrugName:       "AMBROXOL",
		Confidence:     domain.ConfidenceMedium,
		SharedGenes:    []string{"GBA", "GBA1"},
		SharedPathways: []string{"Autophagy", "Lysosomal function"},
	}

	first, err := p.Explain(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Explain(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHeuristicProviderMetadata(t *testing.T) {
	p := NewHeuristicProvider()
	assert.Equal(t, "heuristic", p.Name())
	assert.True(t, p.IsAvailable(context.Background()))
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(configWithKey(""), testLogger())
	assert.Error(t, err)

	p, err := NewOpenAIProvider(configWithKey("sk-test"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
