package risk

import (
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	execution "multisignal_bot/internal/modules/execution/service"
	portfolio "multisignal_bot/internal/modules/portfolio/service"
	"multisignal_bot/internal/modules/risk/service"
	"multisignal_bot/internal/notify"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("risk",
		fx.Provide(
			func(
				cfg config.RiskConfig,
				exec config.ExecutionConfig,
				trading config.TradingConfig,
				book *portfolio.Portfolio,
				gw *execution.Gateway,
				market models.MarketDataCapability,
				journal models.TradeLog,
				n notify.Notifier,
			) *service.Manager {
				return service.NewManager(cfg, exec, trading, book, gw, market, journal, n)
			},
		),
	)
}
