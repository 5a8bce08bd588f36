package corpus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/pkg/external"
)

// PostgresWarehouse persists corpus snapshots in PostgreSQL. The
// schema is managed by the database package's migration runner.
type PostgresWarehouse struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewPostgresWarehouse creates a warehouse backed by the given pool.
func NewPostgresWarehouse(pool *pgxpool.Pool, logger *logrus.Logger) *PostgresWarehouse {
	return &PostgresWarehouse{
		pool: pool,
		log:  logger,
	}
}

// SnapshotCorpus replaces the stored corpus with drugs in a single
// transaction.
func (w *PostgresWarehouse) SnapshotCorpus(ctx context.Context, drugs []external.DrugEntry) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE corpus_drugs"); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	now := time.Now().UTC()
	rows := make([][]interface{}, 0, len(drugs))
	for _, d := range drugs {
		rows = append(rows, []interface{}{d.ChemblID, d.Name, d.MaxPhase, d.Mechanism, d.Indication, now})
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"corpus_drugs"},
		[]string{"chembl_id", "name", "max_phase", "mechanism", "indication", "snapshot_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		w.log.WithError(err).Error("Failed to copy corpus snapshot")
		return fmt.Errorf("copying corpus snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO corpus_meta (id, drug_count, snapshot_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			drug_count = EXCLUDED.drug_count,
			snapshot_at = EXCLUDED.snapshot_at`,
		len(drugs), now,
	); err != nil {
		return fmt.Errorf("updating snapshot metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	w.log.WithField("drugs", len(drugs)).Info("Drug corpus snapshot stored")
	return nil
}

// LoadCorpus returns the stored corpus in snapshot order.
func (w *PostgresWarehouse) LoadCorpus(ctx context.Context) ([]external.DrugEntry, error) {
	rows, err := w.pool.Query(ctx, `
		SELECT chembl_id, name, max_phase, mechanism, indication
		FROM corpus_drugs
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying corpus snapshot: %w", err)
	}
	defer rows.Close()

	var drugs []external.DrugEntry
	for rows.Next() {
		var d external.DrugEntry
		if err := rows.Scan(&d.ChemblID, &d.Name, &d.MaxPhase, &d.Mechanism, &d.Indication); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		drugs = append(drugs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus rows: %w", err)
	}

	return drugs, nil
}

// CorpusMeta reports the stored snapshot, or nil when none exists.
func (w *PostgresWarehouse) CorpusMeta(ctx context.Context) (*Meta, error) {
	var meta Meta
	err := w.pool.QueryRow(ctx,
		"SELECT drug_count, snapshot_at FROM corpus_meta WHERE id = 1",
	).Scan(&meta.DrugCount, &meta.SnapshotAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot metadata: %w", err)
	}

	return &meta, nil
}

// Close closes the underlying pool.
func (w *PostgresWarehouse) Close() error {
	w.pool.Close()
	return nil
}
