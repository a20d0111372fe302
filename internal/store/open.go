package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/config"
)

// Open connects to the backend named by cfg.Driver and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	zap.L().Debug("store: opened", zap.String("driver", cfg.Driver))
	return s, nil
}
