package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/health"
)

// ErrHealthEntryNotFound is returned when an identity key has no stored max health.
var ErrHealthEntryNotFound = errors.New("health log entry not found")

// HealthLogRepository is a health.Store backed by the health_log table.
type HealthLogRepository struct {
	db *pgxpool.Pool
}

// NewHealthLogRepository creates a HealthLogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewHealthLogRepository(db *pgxpool.Pool) *HealthLogRepository {
	return &HealthLogRepository{db: db}
}

// Load returns every stored entry ordered by identity key.
//
// Postcondition: Returns all rows or a non-nil error.
func (r *HealthLogRepository) Load(ctx context.Context) ([]health.Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT identity_key, max_hp FROM health_log ORDER BY identity_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying health log: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (health.Entry, error) {
		var key int64
		var hp int32
		if err := row.Scan(&key, &hp); err != nil {
			return health.Entry{}, err
		}
		return health.Entry{Key: agent.IdentityKey(key), MaxHP: int(hp)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning health log: %w", err)
	}
	return entries, nil
}

// Save upserts every entry in a single batch. Rows absent from entries are kept.
//
// Precondition: every entry must satisfy health.Entry.Validate.
// Postcondition: Every entry is stored with its latest max health, or a non-nil error is returned.
func (r *HealthLogRepository) Save(ctx context.Context, entries []health.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO health_log (identity_key, max_hp)
			 VALUES ($1, $2)
			 ON CONFLICT (identity_key) DO UPDATE
			 SET max_hp = EXCLUDED.max_hp, updated_at = NOW()`,
			int64(e.Key), int32(e.MaxHP),
		)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting health log: %w", err)
	}
	return nil
}

// Get returns the stored max health for key.
//
// Postcondition: Returns the value or ErrHealthEntryNotFound.
func (r *HealthLogRepository) Get(ctx context.Context, key agent.IdentityKey) (int, error) {
	var hp int32
	err := r.db.QueryRow(ctx,
		`SELECT max_hp FROM health_log WHERE identity_key = $1`,
		int64(key),
	).Scan(&hp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrHealthEntryNotFound
		}
		return 0, fmt.Errorf("querying health log entry: %w", err)
	}
	return int(hp), nil
}
