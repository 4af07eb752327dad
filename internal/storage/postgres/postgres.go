// Package postgres stores the health log in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/partydamage/internal/config"
)

// ApplicationName tags every connection opened by the meter.
const ApplicationName = "dmgmeter"

// PingTimeout bounds the reachability check performed by NewPool.
const PingTimeout = 5 * time.Second

// Pool wraps a pgx connection pool.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg and checks that it answers.
//
// Precondition: cfg must pass config validation for the postgres backend.
// Postcondition: Returns a reachable Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	p := &Pool{pool: pool}
	if err := p.Health(ctx, PingTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return p, nil
}

// OpenHealthLog migrates the schema and returns a repository on a fresh pool.
//
// Postcondition: The caller must Close the returned Pool.
func OpenHealthLog(ctx context.Context, cfg config.DatabaseConfig) (*HealthLogRepository, *Pool, error) {
	if err := Migrate(cfg.DSN()); err != nil {
		return nil, nil, err
	}
	p, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewHealthLogRepository(p.DB()), p, nil
}

// Health pings the database within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
