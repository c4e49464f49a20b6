package postgres

import (
	"context"
	"fmt"
	"signal_bot/internal/modules/config"
	"signal_bot/migrations"
	"signal_bot/pkg/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				pool, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create pool: %w", err)
				}

				if err = pool.Ping(ctx); err != nil {
					return nil, err
				}

				if err = migrate(pool); err != nil {
					return nil, fmt.Errorf("migrations: %w", err)
				}

				return db.NewPgTxManager(pool), nil
			},
		),
	)
}

func migrate(pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	// goose drives database/sql; the pool stays owned by pgx, so the
	// wrapper is intentionally left unclosed.
	sqlDB := stdlib.OpenDBFromPool(pool)
	return goose.Up(sqlDB, ".")
}
