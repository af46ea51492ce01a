package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/card-service/internal/config"
)

// Open returns the store selected by cfg.Storage. For PostgreSQL the schema
// is migrated before returning. The returned close function is never nil.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	if cfg.Storage == config.StorageMemory {
		return NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	repo := NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}
