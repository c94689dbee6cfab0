package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/logging"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver   string
	DSN      string
	Accounts []Account
}

// migrator is implemented by backends that can create their own schema.
type migrator interface {
	Migrate(ctx context.Context) error
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	log := logging.FromContext(ctx)
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}

	var st Storage
	switch drv {
	case "memory":
		log.Info("storage: using in-memory backend")
		return NewMemoryWithAccounts(cfg.Accounts), nil

	case "sqlite", "postgres":
		log.Info("storage: using gorm backend", zap.String("driver", drv))
		gs, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st = gs

	case "postgrespool":
		log.Info("storage: using pgx pool backend")
		pg, err := OpenPostgresPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st = pg

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}

	if m, ok := st.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("storage migrate: %w", err)
		}
	}
	for _, a := range cfg.Accounts {
		if err := st.UpsertAccount(ctx, a); err != nil {
			st.Close()
			return nil, fmt.Errorf("storage seed account %s:%s: %w", a.Provider, a.UserCode, err)
		}
	}
	return st, nil
}
