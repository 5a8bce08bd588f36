package corpus

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/pkg/external"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleCorpus() []external.DrugEntry {
	return []external.DrugEntry{
		{ChemblID: "CHEMBL255863", Name: "NILOTINIB", MaxPhase: 4, Mechanism: "Bcr-Abl tyrosine kinase inhibitor", Indication: "Chronic myeloid leukemia"},
		{ChemblID: "CHEMBL2429", Name: "AMBROXOL", MaxPhase: 4, Mechanism: "Mucolytic agent", Indication: "Respiratory disorders with viscid mucus"},
		{ChemblID: "CHEMBL1431", Name: "METFORMIN", MaxPhase: 4, Mechanism: "AMPK activator", Indication: "Type 2 diabetes mellitus"},
	}
}

type fakeFetcher struct {
	drugs []external.DrugEntry
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) DrugCorpus(ctx context.Context, limit int) ([]external.DrugEntry, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.drugs) > limit {
		return f.drugs[:limit], nil
	}
	return f.drugs, nil
}

type failingWarehouse struct {
	*MemoryWarehouse
	snapshotErr error
}

func (w *failingWarehouse) SnapshotCorpus(ctx context.Context, drugs []external.DrugEntry) error {
	if w.snapshotErr != nil {
		return w.snapshotErr
	}
	return w.MemoryWarehouse.SnapshotCorpus(ctx, drugs)
}

func TestMemoryWarehouse_RoundTrip(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()

	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)

	meta, err := warehouse.CorpusMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.DrugCount)
	assert.WithinDuration(t, time.Now().UTC(), meta.SnapshotAt, time.Minute)
}

func TestMemoryWarehouse_EmptyBeforeFirstSnapshot(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()

	meta, err := warehouse.CorpusMeta(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Empty(t, drugs)
}

func TestMemoryWarehouse_LoadReturnsCopy(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	drugs[0].Name = "MUTATED"

	reloaded, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NILOTINIB", reloaded[0].Name)
}

func TestSource_FreshSnapshotSkipsLive(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))

	live := &fakeFetcher{err: errors.New("live source should not be called")}
	source := NewSource(warehouse, live, time.Hour, testLogger())

	drugs, err := source.DrugCorpus(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)
	assert.Equal(t, int32(0), live.calls.Load())
}

func TestSource_SnapshotTruncatedToLimit(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))

	source := NewSource(warehouse, &fakeFetcher{}, time.Hour, testLogger())

	drugs, err := source.DrugCorpus(ctx, 2)
	require.NoError(t, err)
	require.Len(t, drugs, 2)
	assert.Equal(t, "NILOTINIB", drugs[0].Name)
	assert.Equal(t, "AMBROXOL", drugs[1].Name)
}

func TestSource_EmptyWarehouseFetchesLiveAndSnapshots(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	live := &fakeFetcher{drugs: sampleCorpus()}
	source := NewSource(warehouse, live, time.Hour, testLogger())
	ctx := context.Background()

	drugs, err := source.DrugCorpus(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)
	assert.Equal(t, int32(1), live.calls.Load())

	meta, err := warehouse.CorpusMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.DrugCount)
}

func TestSource_ZeroTTLAlwaysFetchesLive(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()[:1]))

	live := &fakeFetcher{drugs: sampleCorpus()}
	source := NewSource(warehouse, live, 0, testLogger())

	drugs, err := source.DrugCorpus(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, drugs, 3)
	assert.Equal(t, int32(1), live.calls.Load())
}

func TestSource_LiveFailureServesStaleSnapshot(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	ctx := context.Background()
	require.NoError(t, warehouse.SnapshotCorpus(ctx, sampleCorpus()))

	live := &fakeFetcher{err: errors.New("chembl unavailable")}
	source := NewSource(warehouse, live, 0, testLogger())

	drugs, err := source.DrugCorpus(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)
	assert.Equal(t, int32(1), live.calls.Load())
}

func TestSource_LiveFailureWithoutSnapshotReturnsError(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	live := &fakeFetcher{err: errors.New("chembl unavailable")}
	source := NewSource(warehouse, live, time.Hour, testLogger())

	_, err := source.DrugCorpus(context.Background(), 500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chembl unavailable")
}

func TestSource_SnapshotFailureStillServesLive(t *testing.T) {
	warehouse := &failingWarehouse{
		MemoryWarehouse: NewMemoryWarehouse(),
		snapshotErr:     errors.New("disk full"),
	}
	live := &fakeFetcher{drugs: sampleCorpus()}
	source := NewSource(warehouse, live, time.Hour, testLogger())

	drugs, err := source.DrugCorpus(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)
}

func TestSource_Rebuild(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	live := &fakeFetcher{drugs: sampleCorpus()}
	source := NewSource(warehouse, live, time.Hour, testLogger())
	ctx := context.Background()

	meta, err := source.Rebuild(ctx, 500)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.DrugCount)

	drugs, err := warehouse.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus(), drugs)
}

func TestSource_RebuildLiveFailure(t *testing.T) {
	warehouse := NewMemoryWarehouse()
	live := &fakeFetcher{err: errors.New("chembl unavailable")}
	source := NewSource(warehouse, live, time.Hour, testLogger())

	_, err := source.Rebuild(context.Background(), 500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching drug corpus")

	meta, metaErr := warehouse.CorpusMeta(context.Background())
	require.NoError(t, metaErr)
	assert.Nil(t, meta)
}
