package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/history"
	"github.com/drug-repurposing-engine/pkg/external"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func loadLibrary(t *testing.T) *curated.Library {
	t.Helper()
	lib, err := curated.Load()
	require.NoError(t, err)
	return lib
}

// fakeGateway implements ResolverGateway, GeneratorGateway and
// ValidatorGateway through optional function fields; a nil field
// returns zero values.
type fakeGateway struct {
	searchFn   func(ctx context.Context, query string, limit int) ([]external.DiseaseHit, error)
	assocFn    func(ctx context.Context, diseaseID string, limit int) (*external.DiseaseAssociations, error)
	trialsFn   func(ctx context.Context, condition string) (int, error)
	corpusFn   func(ctx context.Context, limit int) ([]external.DrugEntry, error)
	interactFn func(ctx context.Context, genes []string) ([]external.GeneInteraction, error)
	gatherFn   func(ctx context.Context, drug, disease string, genes []string) (*external.EvidenceBundle, error)

	searchCalls atomic.Int32
}

func (f *fakeGateway) SearchDiseases(ctx context.Context, query string, limit int) ([]external.DiseaseHit, error) {
	f.searchCalls.Add(1)
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ctx, query, limit)
}

func (f *fakeGateway) DiseaseAssociations(ctx context.Context, diseaseID string, limit int) (*external.DiseaseAssociations, error) {
	if f.assocFn == nil {
		return &external.DiseaseAssociations{ID: diseaseID}, nil
	}
	return f.assocFn(ctx, diseaseID, limit)
}

func (f *fakeGateway) ConditionTrialCount(ctx context.Context, condition string) (int, error) {
	if f.trialsFn == nil {
		return 0, nil
	}
	return f.trialsFn(ctx, condition)
}

func (f *fakeGateway) DrugCorpus(ctx context.Context, limit int) ([]external.DrugEntry, error) {
	if f.corpusFn == nil {
		return nil, nil
	}
	return f.corpusFn(ctx, limit)
}

func (f *fakeGateway) GeneInteractions(ctx context.Context, genes []string) ([]external.GeneInteraction, error) {
	if f.interactFn == nil {
		return nil, nil
	}
	return f.interactFn(ctx, genes)
}

func (f *fakeGateway) GatherValidationEvidence(ctx context.Context, drug, disease string, genes []string) (*external.EvidenceBundle, error) {
	if f.gatherFn == nil {
		return &external.EvidenceBundle{}, nil
	}
	return f.gatherFn(ctx, drug, disease, genes)
}

// parkinsonAssociations is the canned association profile used across
// the pipeline tests. The 0.05-scored target sits below the cutoff and
// must be dropped during resolution.
func parkinsonAssociations() *external.DiseaseAssociations {
	return &external.DiseaseAssociations{
		ID:          "EFO_0002508",
		Name:        "Parkinson disease",
		Description: "A progressive neurodegenerative movement disorder.",
		TotalCount:  120,
		Targets: []external.TargetAssociation{
			{Symbol: "SNCA", Score: 0.9},
			{Symbol: "LRRK2", Score: 0.8},
			{Symbol: "GBA", Score: 0.5},
			{Symbol: "PRKN", Score: 0.3},
			{Symbol: "DNAJC6", Score: 0.05},
		},
	}
}

func parkinsonHit() external.DiseaseHit {
	return external.DiseaseHit{
		ID:          "EFO_0002508",
		Name:        "Parkinson disease",
		Description: "A progressive neurodegenerative movement disorder.",
	}
}

// parkinsonDisease is the resolved record the resolver produces from
// parkinsonAssociations, with pathways from the curated map.
func parkinsonDisease() *domain.Disease {
	return &domain.Disease{
		ID:          "EFO_0002508",
		Name:        "Parkinson disease",
		Description: "A progressive neurodegenerative movement disorder.",
		Genes:       []string{"SNCA", "LRRK2", "GBA", "PRKN"},
		GeneScores: map[string]float64{
			"SNCA":  0.9,
			"LRRK2": 0.8,
			"GBA":   0.5,
			"PRKN":  0.3,
		},
		Pathways: []string{
			"Alpha-synuclein aggregation",
			"Autophagy",
			"Dopamine metabolism",
			"Lysosomal function",
			"Mitochondrial function",
			"Mitophagy",
			"Sphingolipid metabolism",
			"Ubiquitin-proteasome system",
			"Vesicle trafficking",
		},
	}
}

// memoryStore is an in-memory history.Store capturing saved records.
type memoryStore struct {
	mu          sync.Mutex
	analyses    []*history.AnalysisRecord
	validations []*history.ValidationRecord
	saveErr     error
}

func (m *memoryStore) SaveAnalysis(_ context.Context, rec *history.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.analyses = append(m.analyses, rec)
	return nil
}

func (m *memoryStore) SaveValidation(_ context.Context, rec *history.ValidationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.validations = append(m.validations, rec)
	return nil
}

func (m *memoryStore) RecentAnalyses(context.Context, int, int) ([]*history.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*history.AnalysisRecord(nil), m.analyses...), nil
}

func (m *memoryStore) RecentValidations(context.Context, int, int) ([]*history.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*history.ValidationRecord(nil), m.validations...), nil
}

func (m *memoryStore) CountAnalyses(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.analyses)), nil
}

func (m *memoryStore) ExportJSON(context.Context, io.Writer) error { return nil }

func (m *memoryStore) Close() error { return nil }

// recordingNotifier captures published progress events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (n *recordingNotifier) Publish(event ProgressEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) stages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Stage
	}
	return out
}
