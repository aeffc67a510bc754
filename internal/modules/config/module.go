package config

import "go.uber.org/fx"

// Module регистрирует Config как fx-провайдер. Секции отдаём отдельно, чтобы модули не тянули весь конфиг.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			func(c Config) RiskConfig { return c.Risk },
			func(c Config) ExecutionConfig { return c.Execution },
			func(c Config) StrategyConfig { return c.Strategy },
			func(c Config) SentimentConfig { return c.Sentiment },
			func(c Config) TradingConfig { return c.Trading },
			func(c Config) ExchangeConfig { return c.Exchange },
		),
	)
}
