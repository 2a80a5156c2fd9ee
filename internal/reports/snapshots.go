package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/finreports/internal/normalize"
	"github.com/odyssey-erp/finreports/internal/platform/db"
)

// Snapshot is a raw payload the normalizer could not recognize, kept so it can
// be replayed against a fixed release.
type Snapshot struct {
	ID         uuid.UUID            `json:"id"`
	ReportType normalize.ReportType `json:"reportType"`
	Shape      normalize.Shape      `json:"shape"`
	Message    string               `json:"message"`
	Payload    string               `json:"payload"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// SnapshotStore persists unrecognized payloads.
type SnapshotStore interface {
	Record(ctx context.Context, snap Snapshot) error
	ListRecent(ctx context.Context, limit int) ([]Snapshot, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

var snapshotSchema = []string{
	`CREATE TABLE IF NOT EXISTS report_snapshots (
	id          UUID PRIMARY KEY,
	report_type TEXT NOT NULL,
	shape       TEXT NOT NULL,
	message     TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS report_snapshots_created_at_idx ON report_snapshots (created_at DESC)`,
}

// PGSnapshotStore keeps snapshots in PostgreSQL.
type PGSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewPGSnapshotStore constructs the store.
func NewPGSnapshotStore(pool *pgxpool.Pool) *PGSnapshotStore {
	return &PGSnapshotStore{pool: pool}
}

// EnsureSchema creates the snapshot table when missing.
func (s *PGSnapshotStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("reports: snapshot store not initialised")
	}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range snapshotSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reports: ensure snapshot schema: %w", err)
	}
	return nil
}

// Record inserts the snapshot, assigning an id and timestamp when unset.
func (s *PGSnapshotStore) Record(ctx context.Context, snap Snapshot) error {
	if s == nil || s.pool == nil {
		return errors.New("reports: snapshot store not initialised")
	}
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO report_snapshots (id, report_type, shape, message, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, string(snap.ReportType), string(snap.Shape), snap.Message, snap.Payload, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("reports: record snapshot: %w", err)
	}
	return nil
}

// ListRecent returns the newest snapshots first.
func (s *PGSnapshotStore) ListRecent(ctx context.Context, limit int) ([]Snapshot, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("reports: snapshot store not initialised")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, report_type, shape, message, payload, created_at FROM report_snapshots ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("reports: list snapshots: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var (
			snap       Snapshot
			reportType string
			shape      string
		)
		if err := row.Scan(&snap.ID, &reportType, &shape, &snap.Message, &snap.Payload, &snap.CreatedAt); err != nil {
			return Snapshot{}, err
		}
		snap.ReportType = normalize.ReportType(reportType)
		snap.Shape = normalize.Shape(shape)
		return snap, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reports: scan snapshots: %w", err)
	}
	return out, nil
}

// Prune deletes snapshots created before the cutoff.
func (s *PGSnapshotStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM report_snapshots WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("reports: prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
