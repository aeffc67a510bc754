package execution

import (
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	exchange "multisignal_bot/internal/modules/exchange/service"
	"multisignal_bot/internal/modules/execution/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("execution",
		fx.Provide(
			func(cfg config.TradingConfig) *service.Pacer {
				return service.NewPacer(cfg.APICallDelay)
			},
			func(v *exchange.Venue, pacer *service.Pacer, cfg config.ExecutionConfig) *service.Gateway {
				return service.NewGateway(v.Orders, pacer, cfg)
			},
			// все остальные модули получают котировки уже через pacer
			func(v *exchange.Venue, pacer *service.Pacer) models.MarketDataCapability {
				return service.NewPaced(v.Market, pacer)
			},
		),
	)
}
