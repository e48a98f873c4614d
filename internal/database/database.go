package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/lib/pq"
)

// NewPool создаёт пул соединений с PostgreSQL.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	cfg.MinConns = 5

	return pgxpool.ConnectConfig(ctx, cfg)
}

type MigrationConfig struct {
	Direction      string
	MigrationsPath string
	Steps          int
}

// RunMigrations выполняет миграции схемы из каталога db/migrations.
func RunMigrations(cfg *MigrationConfig, databaseURL string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", cfg.MigrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	switch cfg.Direction {
	case "up":
		if cfg.Steps > 0 {
			err = m.Steps(cfg.Steps)
		} else {
			err = m.Up()
		}
	case "down":
		if cfg.Steps > 0 {
			err = m.Steps(-cfg.Steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown migration direction %q", cfg.Direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("database schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", cfg.Direction, err)
	}

	slog.Info("migrations applied", "direction", cfg.Direction)
	return nil
}
