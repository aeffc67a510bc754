package exchange

import (
	"multisignal_bot/internal/modules/config"
	"multisignal_bot/internal/modules/exchange/service"
	"multisignal_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewVenue: live торгует через Binance, paper берёт с Binance только публичные котировки.
func NewVenue(cfg config.ExchangeConfig, trading config.TradingConfig) *service.Venue {
	binance := service.NewBinance(cfg.APIKey, cfg.SecretKey, trading.BaseCurrency, cfg.QuoteAsset)
	if cfg.Mode == "live" {
		logger.Info("[EXCH] live trading on binance futures")
		return service.BinanceVenue(binance)
	}
	logger.Info("[EXCH] paper trading, balance %.2f %s", cfg.PaperBalance, trading.BaseCurrency)
	return service.PaperVenue(service.NewPaper(trading.BaseCurrency, cfg.PaperBalance, binance))
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(NewVenue),
	)
}
