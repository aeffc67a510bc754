package portfolio

import (
	"context"

	"multisignal_bot/internal/modules/config"
	exchange "multisignal_bot/internal/modules/exchange/service"
	"multisignal_bot/internal/modules/portfolio/service"
	"multisignal_bot/pkg/logger"

	"go.uber.org/fx"
)

func newPortfolio(lc fx.Lifecycle, v *exchange.Venue, trading config.TradingConfig, risk config.RiskConfig) *service.Portfolio {
	p := service.NewPortfolio(v.Account, trading, risk)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// баланс подтянется в первом цикле, старт из-за биржи не валим
			if err := p.Refresh(ctx); err != nil {
				logger.Warn("[PORTFOLIO] initial balance: %v", err)
				return nil
			}
			logger.Info("[PORTFOLIO] %s balance %.2f, available %.2f (%s)",
				p.BaseCurrency(), p.TotalBalance(), p.AvailableBalance(), v.Name)
			return nil
		},
	})
	return p
}

func Module() fx.Option {
	return fx.Module("portfolio",
		fx.Provide(newPortfolio),
	)
}
