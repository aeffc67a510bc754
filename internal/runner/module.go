package runner

import (
	"context"

	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	health "multisignal_bot/internal/modules/health/service"
	indicators "multisignal_bot/internal/modules/indicators/service"
	risk "multisignal_bot/internal/modules/risk/service"
	sentiment "multisignal_bot/internal/modules/sentiment/service"
	strategy "multisignal_bot/internal/modules/strategy/service"
	"multisignal_bot/internal/notify"

	"go.uber.org/fx"
)

func newRunner(
	trading config.TradingConfig,
	market models.MarketDataCapability,
	engine *indicators.Engine,
	combiner strategy.Combiner,
	pipeline *sentiment.Pipeline,
	rm *risk.Manager,
	sink models.DecisionSink,
	state *health.State,
	n notify.Notifier,
) *Runner {
	return New(trading, market, engine, combiner, pipeline, rm, sink, state, n)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(newRunner),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, ctx context.Context) {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						defer close(done)
						r.Start(runCtx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					r.Stop()
					cancel()
					// ждём, пока цикл доработает текущую пару
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
