package postgres

import (
	"context"
	"fmt"

	"multisignal_bot/internal/modules/config"
	"multisignal_bot/pkg/db"
	"multisignal_bot/pkg/logger"

	"go.uber.org/fx"
)

// Module отдаёт *db.PgTxManager. Без db_dsn провайдер возвращает nil, и журнал пишет только в память.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					logger.Info("[DB] db_dsn is empty, postgres journal disabled")
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:      cfg.DB,
					MaxConns: 4,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, err
				}

				tx := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						tx.Close()
						return nil
					},
				})
				return tx, nil
			},
		),
	)
}
