// Package corpus maintains a persistent snapshot of the approved-drug
// corpus that candidate generation screens against. Serving the corpus
// from a warehouse snapshot keeps analyses running when ChEMBL is slow
// or unreachable and spares the live API on busy instances.
package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/pkg/external"
)

// Meta describes the stored snapshot.
type Meta struct {
	DrugCount  int       `json:"drug_count"`
	SnapshotAt time.Time `json:"snapshot_at"`
}

// Warehouse stores and retrieves drug corpus snapshots.
type Warehouse interface {
	// SnapshotCorpus replaces the stored corpus with drugs.
	SnapshotCorpus(ctx context.Context, drugs []external.DrugEntry) error
	// LoadCorpus returns the stored corpus in snapshot order.
	LoadCorpus(ctx context.Context) ([]external.DrugEntry, error)
	// CorpusMeta reports the stored snapshot, or nil when none exists.
	CorpusMeta(ctx context.Context) (*Meta, error)
	Close() error
}

// Fetcher retrieves the approved-drug corpus from the live source.
type Fetcher interface {
	DrugCorpus(ctx context.Context, limit int) ([]external.DrugEntry, error)
}

// Source serves the drug corpus, preferring a warehouse snapshot no
// older than ttl and falling back to the live source. Live fetches are
// snapshotted back to the warehouse so later calls and restarts do not
// depend on upstream availability.
type Source struct {
	warehouse Warehouse
	live      Fetcher
	ttl       time.Duration
	log       *logrus.Logger
}

// NewSource creates a corpus source backed by warehouse and live. A
// non-positive ttl disables snapshot reuse: every call then fetches
// live, keeping the snapshot only as a failure fallback.
func NewSource(warehouse Warehouse, live Fetcher, ttl time.Duration, logger *logrus.Logger) *Source {
	return &Source{
		warehouse: warehouse,
		live:      live,
		ttl:       ttl,
		log:       logger,
	}
}

// DrugCorpus returns up to limit drugs, from the snapshot when fresh
// and from the live source otherwise. When the live fetch fails a
// stale snapshot is served if one exists.
func (s *Source) DrugCorpus(ctx context.Context, limit int) ([]external.DrugEntry, error) {
	meta, err := s.warehouse.CorpusMeta(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Could not read corpus snapshot metadata")
		meta = nil
	}

	if s.fresh(meta) {
		drugs, err := s.warehouse.LoadCorpus(ctx)
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"drugs": len(drugs),
				"age":   time.Since(meta.SnapshotAt).Round(time.Second).String(),
			}).Debug("Serving drug corpus from snapshot")
			return truncate(drugs, limit), nil
		}
		s.log.WithError(err).Warn("Could not load corpus snapshot, fetching live")
	}

	drugs, err := s.live.DrugCorpus(ctx, limit)
	if err != nil {
		if meta != nil && meta.DrugCount > 0 {
			stale, loadErr := s.warehouse.LoadCorpus(ctx)
			if loadErr == nil && len(stale) > 0 {
				s.log.WithError(err).WithField(
					"age", time.Since(meta.SnapshotAt).Round(time.Second).String(),
				).Warn("Live corpus fetch failed, serving stale snapshot")
				return truncate(stale, limit), nil
			}
		}
		return nil, err
	}

	if snapErr := s.warehouse.SnapshotCorpus(ctx, drugs); snapErr != nil {
		s.log.WithError(snapErr).Warn("Could not snapshot drug corpus")
	}

	return drugs, nil
}

// Rebuild forces a live fetch and snapshot, returning the metadata of
// the new snapshot.
func (s *Source) Rebuild(ctx context.Context, limit int) (*Meta, error) {
	drugs, err := s.live.DrugCorpus(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching drug corpus: %w", err)
	}

	if err := s.warehouse.SnapshotCorpus(ctx, drugs); err != nil {
		return nil, fmt.Errorf("snapshotting drug corpus: %w", err)
	}

	s.log.WithField("drugs", len(drugs)).Info("Drug corpus snapshot rebuilt")
	return s.warehouse.CorpusMeta(ctx)
}

func (s *Source) fresh(meta *Meta) bool {
	return meta != nil && meta.DrugCount > 0 && s.ttl > 0 && time.Since(meta.SnapshotAt) < s.ttl
}

func truncate(drugs []external.DrugEntry, limit int) []external.DrugEntry {
	if limit > 0 && len(drugs) > limit {
		return drugs[:limit]
	}
	return drugs
}
