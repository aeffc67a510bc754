package journal

import (
	"context"

	"multisignal_bot/internal/models"
	health "multisignal_bot/internal/modules/health/service"
	"multisignal_bot/internal/modules/journal/service"
	"multisignal_bot/pkg/db"

	"go.uber.org/fx"
)

// newPostgres: nil, если db_dsn не задан.
func newPostgres(lc fx.Lifecycle, tx *db.PgTxManager) *service.Postgres {
	if tx == nil {
		return nil
	}
	pg := service.NewPostgres(tx)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return pg.EnsureSchema(ctx)
		},
	})
	return pg
}

func newTradeLog(mem *service.Memory, hub *health.Hub, pg *service.Postgres) models.TradeLog {
	sinks := []models.TradeLog{mem, hub}
	if pg != nil {
		sinks = append(sinks, pg)
	}
	return service.NewFanout(sinks...)
}

// History: откуда API читает сделки. С базой история переживает рестарт.
type History interface {
	Recent(ctx context.Context, limit int) ([]models.TradeRecord, error)
}

func newHistory(mem *service.Memory, pg *service.Postgres) History {
	if pg != nil {
		return pg
	}
	return mem
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			func() *service.Memory { return service.NewMemory(0) },
			newPostgres,
			newTradeLog,
			newHistory,
		),
	)
}
