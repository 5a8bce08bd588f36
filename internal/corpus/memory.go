package corpus

import (
	"context"
	"sync"
	"time"

	"github.com/drug-repurposing-engine/pkg/external"
)

// MemoryWarehouse keeps the corpus snapshot in process memory. It is
// the default when no warehouse database is configured.
type MemoryWarehouse struct {
	mu    sync.RWMutex
	drugs []external.DrugEntry
	meta  *Meta
}

// NewMemoryWarehouse creates an empty in-memory warehouse.
func NewMemoryWarehouse() *MemoryWarehouse {
	return &MemoryWarehouse{}
}

// SnapshotCorpus replaces the stored corpus with drugs.
func (w *MemoryWarehouse) SnapshotCorpus(ctx context.Context, drugs []external.DrugEntry) error {
	stored := make([]external.DrugEntry, len(drugs))
	copy(stored, drugs)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.drugs = stored
	w.meta = &Meta{DrugCount: len(stored), SnapshotAt: time.Now().UTC()}
	return nil
}

// LoadCorpus returns a copy of the stored corpus.
func (w *MemoryWarehouse) LoadCorpus(ctx context.Context) ([]external.DrugEntry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]external.DrugEntry, len(w.drugs))
	copy(out, w.drugs)
	return out, nil
}

// CorpusMeta reports the stored snapshot, or nil when none exists.
func (w *MemoryWarehouse) CorpusMeta(ctx context.Context) (*Meta, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.meta == nil {
		return nil, nil
	}
	meta := *w.meta
	return &meta, nil
}

// Close is a no-op for the in-memory warehouse.
func (w *MemoryWarehouse) Close() error {
	return nil
}
