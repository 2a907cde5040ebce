package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/wielermanager/internal/contracts"
)

// Repository stores snapshots in PostgreSQL
// ⭐ SSOT: snapshot rows are written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save inserts a new snapshot row and sets snap.ID
func (r *Repository) Save(ctx context.Context, snap *contracts.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO game.snapshots (game_id, season, rider_count, race_count, snapshot_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = r.pool.QueryRow(ctx, query,
		snap.GameID, snap.Season, len(snap.Riders), len(snap.Races), data, snap.CollectedAt,
	).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently collected snapshot
func (r *Repository) Latest(ctx context.Context) (*contracts.Snapshot, error) {
	query := `
		SELECT id, snapshot_data
		FROM game.snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var (
		id   int64
		data []byte
	)
	err := r.pool.QueryRow(ctx, query).Scan(&id, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}
	snap.ID = id
	return snap, nil
}
