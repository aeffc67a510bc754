package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	health "multisignal_bot/internal/modules/health/service"
	indicators "multisignal_bot/internal/modules/indicators/service"
	risk "multisignal_bot/internal/modules/risk/service"
	strategy "multisignal_bot/internal/modules/strategy/service"
	"multisignal_bot/internal/notify"
	"multisignal_bot/pkg/logger"
	"multisignal_bot/pkg/tracing"
)

// SentimentSource: один композитный сентимент на цикл.
type SentimentSource interface {
	Run(ctx context.Context) models.CompositeSentiment
}

// Runner: единственный управляющий цикл. Пары идут последовательно, флаг остановки
// проверяется между парами и между циклами.
type Runner struct {
	trading   config.TradingConfig
	market    models.MarketDataCapability
	engine    *indicators.Engine
	combiner  strategy.Combiner
	sentiment SentimentSource
	risk      *risk.Manager
	sink      models.DecisionSink
	state     *health.State
	notifier  notify.Notifier
	now       func() time.Time

	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	day time.Time // текущие UTC-сутки дневного окна
}

func New(
	trading config.TradingConfig,
	market models.MarketDataCapability,
	engine *indicators.Engine,
	combiner strategy.Combiner,
	sent SentimentSource,
	rm *risk.Manager,
	sink models.DecisionSink,
	state *health.State,
	notifier notify.Notifier,
) *Runner {
	if notifier == nil {
		notifier = notify.NewStdout()
	}
	if state == nil {
		state = health.NewState()
	}
	return &Runner{
		trading:   trading,
		market:    market,
		engine:    engine,
		combiner:  combiner,
		sentiment: sent,
		risk:      rm,
		sink:      sink,
		state:     state,
		notifier:  notifier,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start крутит циклы до отмены ctx или Stop. Блокирующий.
func (r *Runner) Start(ctx context.Context) {
	logger.Info("[CYCLE] start: pairs=%v interval=%s every=%s strategy=%s",
		r.trading.Pairs, r.trading.Interval, r.trading.CycleInterval, r.combiner.Name())
	r.state.SetReady(true)
	defer r.state.SetReady(false)

	for !r.shouldStop(ctx) {
		r.RunCycle(ctx)

		wait := r.trading.CycleInterval
		if wait <= 0 {
			wait = time.Second
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-r.stopCh:
			t.Stop()
		case <-t.C:
		}
	}
	logger.Info("[CYCLE] stopped")
}

// Stop: кооперативная остановка, текущий ордер дорабатывает.
func (r *Runner) Stop() {
	r.stopped.Store(true)
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Runner) shouldStop(ctx context.Context) bool {
	return r.stopped.Load() || ctx.Err() != nil
}

// rollDay: смена UTC-суток и есть явный дневной сброс.
func (r *Runner) rollDay() {
	day := r.now().UTC().Truncate(24 * time.Hour)
	if r.day.IsZero() {
		r.day = day
		return
	}
	if day.After(r.day) {
		r.day = day
		r.risk.ResetDaily()
		if r.state.Halted() {
			r.notifier.Send("✅ Новые сутки, торговля возобновлена")
		}
		r.state.SetHalted(false)
	}
}

// RunCycle: один проход по всем парам. Возвращает true, если торговля остановлена по дневной просадке.
// В остановленном цикле новых входов нет, но открытые позиции продолжают мониториться.
func (r *Runner) RunCycle(ctx context.Context) (halted bool) {
	span, ctx := tracing.StartSpan(ctx, "Runner.RunCycle", nil)
	defer span.Finish()
	defer func() { r.state.TouchCycle(r.now()) }()

	r.rollDay()

	if r.risk.CheckDailyDrawdown(ctx) {
		if !r.state.Halted() {
			r.state.SetHalted(true)
			r.notifier.Sendf("⛔️ Дневная просадка достигнута (убыток %.4f), торговля остановлена до конца суток", r.risk.DailyLoss())
		}
		span.SetTag("halted", true)
		r.risk.MonitorPositions(ctx)
		return true
	}

	// баланс не обновился: решения считаем, но новых входов в этом цикле нет
	entries := r.risk.BalanceKnown()
	if !entries {
		logger.Warn("[CYCLE] balance unknown, entries skipped this cycle")
	}

	sent := r.sentiment.Run(ctx)

	for _, pair := range r.trading.Pairs {
		if r.shouldStop(ctx) {
			return false
		}
		r.processPair(ctx, pair, sent, entries)
	}

	if r.shouldStop(ctx) {
		return false
	}
	r.risk.MonitorPositions(ctx)
	return false
}

func (r *Runner) processPair(ctx context.Context, pair string, sent models.CompositeSentiment, entries bool) {
	bars, err := r.market.GetOHLC(ctx, pair, r.trading.Interval, r.trading.HistoryBars)
	if err != nil {
		logger.Warn("[CYCLE] %s: no ohlc, skipped: %v", pair, err)
		return
	}

	tech := r.engine.Evaluate(bars)
	d := r.combiner.Combine(pair, tech, sent)
	d.Time = r.now()
	if r.sink != nil {
		r.sink.Publish(d)
	}
	logger.Info("[SIGNAL] %s %s score=%.3f size=%.3f (%s)", pair, d.Action, d.Score, d.TradeSize, d.Strategy)

	state := r.risk.State(pair)
	switch {
	case d.Action == models.ActionBuy && state == models.StateIdle:
		if !entries {
			return
		}
		price, ok := r.lastPrice(ctx, pair)
		if !ok {
			return
		}
		if _, err := r.risk.OpenPosition(ctx, d, price); err != nil {
			if models.IsKind(err, models.KindValidation) {
				logger.Info("[RISK] %s: %v", pair, err)
				return
			}
			logger.Error("[CYCLE] %s: entry failed: %v", pair, err)
		}

	case d.Action == models.ActionSell && state == models.StateOpen:
		price, ok := r.lastPrice(ctx, pair)
		if !ok {
			return
		}
		if _, err := r.risk.ClosePosition(ctx, pair, price, models.ExitSignal); err != nil {
			logger.Error("[CYCLE] %s: exit failed: %v", pair, err)
		}
	}
}

func (r *Runner) lastPrice(ctx context.Context, pair string) (float64, bool) {
	t, err := r.market.GetTicker(ctx, pair)
	if err != nil || t.LastPrice <= 0 {
		logger.Warn("[CYCLE] %s: no ticker, skipped: %v", pair, err)
		return 0, false
	}
	return t.LastPrice, true
}
