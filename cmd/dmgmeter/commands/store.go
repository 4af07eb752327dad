package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/config"
	"github.com/cory-johannsen/partydamage/internal/game/health"
	"github.com/cory-johannsen/partydamage/internal/storage/postgres"
	"github.com/cory-johannsen/partydamage/internal/storage/sqlite"
	"github.com/cory-johannsen/partydamage/internal/storage/yamlfile"
)

// openStore opens the configured health log backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (health.Store, func(), error) {
	switch cfg.HealthLog.Backend {
	case config.BackendFile:
		return yamlfile.NewStore(cfg.HealthLog.Path, logger), func() {}, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.HealthLog.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("closing sqlite health log", zap.Error(err))
			}
		}, nil
	case config.BackendPostgres:
		repo, pool, err := postgres.OpenHealthLog(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown health log backend %q", cfg.HealthLog.Backend)
	}
}
