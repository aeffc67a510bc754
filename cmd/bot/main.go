package main

import (
	"context"
	"log"

	"multisignal_bot/internal/modules/config"
	"multisignal_bot/internal/modules/exchange"
	"multisignal_bot/internal/modules/execution"
	"multisignal_bot/internal/modules/health"
	"multisignal_bot/internal/modules/indicators"
	"multisignal_bot/internal/modules/journal"
	"multisignal_bot/internal/modules/portfolio"
	portfoliosvc "multisignal_bot/internal/modules/portfolio/service"
	"multisignal_bot/internal/modules/postgres"
	"multisignal_bot/internal/modules/risk"
	"multisignal_bot/internal/modules/sentiment"
	"multisignal_bot/internal/modules/strategy"
	"multisignal_bot/internal/notify"
	"multisignal_bot/internal/runner"
	"multisignal_bot/pkg/logger"
	"multisignal_bot/pkg/tracing"

	"go.uber.org/fx"
)

func initLogger(cfg config.Config) error {
	logger.SetServiceName(cfg.Service.Name)
	if err := logger.Init(cfg.Service.LogLevel); err != nil {
		return err
	}
	logger.Info("effective config:\n%s", cfg.Dump())
	return nil
}

func initTracing(lc fx.Lifecycle, cfg config.Config) error {
	tracing.SetServiceName(cfg.Service.Name)
	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			logger.Sync()
			return nil
		},
	})
	return nil
}

// newNotifier: Telegram при наличии токена и chat_id, иначе всё в лог.
func newNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config, book *portfoliosvc.Portfolio) notify.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return notify.NewStdout()
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, book)
	if err != nil {
		logger.Warn("[NOTIFY] telegram disabled: %v", err)
		return notify.NewStdout()
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			tg.Send("🚀 Бот запущен")
			return tg.Start(ctx)
		},
		OnStop: func(context.Context) error {
			tg.Stop()
			return nil
		},
	})
	return tg
}

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			newNotifier,
			func(p *portfoliosvc.Portfolio) health.PositionsSource { return p },
			func(h journal.History) health.TradesSource { return h },
		),
		config.Module(),
		fx.Invoke(initLogger, initTracing),
		exchange.Module(),
		execution.Module(),
		portfolio.Module(),
		indicators.Module(),
		sentiment.Module(),
		strategy.Module(),
		postgres.Module(),
		journal.Module(),
		risk.Module(),
		health.Module(),
		runner.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
