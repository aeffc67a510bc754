package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	exchange "multisignal_bot/internal/modules/exchange/service"
	execution "multisignal_bot/internal/modules/execution/service"
	health "multisignal_bot/internal/modules/health/service"
	indicators "multisignal_bot/internal/modules/indicators/service"
	portfolio "multisignal_bot/internal/modules/portfolio/service"
	risk "multisignal_bot/internal/modules/risk/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	mu      sync.Mutex
	actions map[string]models.Action
	size    float64
}

func (s *scripted) set(pair string, a models.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[pair] = a
}

func (s *scripted) Combine(pair string, _ indicators.Result, _ models.CompositeSentiment) models.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[pair]
	if !ok {
		a = models.ActionHold
	}
	return models.Decision{Pair: pair, Action: a, TradeSize: s.size, Strategy: models.StrategyVote}
}

func (s *scripted) Name() models.StrategyMode { return models.StrategyVote }

type neutralSentiment struct{ calls int }

func (n *neutralSentiment) Run(context.Context) models.CompositeSentiment {
	n.calls++
	return models.CompositeSentiment{Signal: models.Hold}
}

type sinkLog struct {
	mu  sync.Mutex
	all []models.Decision
}

func (s *sinkLog) Publish(d models.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, d)
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) Send(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notes) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

func (n *notes) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type harness struct {
	paper    *exchange.Paper
	rm       *risk.Manager
	combiner *scripted
	sent     *neutralSentiment
	sink     *sinkLog
	notes    *notes
	state    *health.State
	r        *Runner
}

func flatBars(n int, price float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Time: start.Add(time.Duration(i) * time.Hour), Open: price, High: price, Low: price, Close: price, Volume: 1}
	}
	return bars
}

// testRisk: потолок notional одной сделки 40%, вход по 0.4 проходит ровно на границе.
func testRisk() config.RiskConfig {
	return config.RiskConfig{
		RiskPerTrade:           0.4,
		StopLoss:               0.05,
		TakeProfit:             0.10,
		Reserve:                0.10,
		MaxExposure:            0.5,
		MaxDailyDrawdown:       0.05,
		MaxConcurrentPositions: 5,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, testRisk(), 0.4)
}

func newHarnessWith(t *testing.T, riskCfg config.RiskConfig, size float64) *harness {
	t.Helper()
	trading := config.TradingConfig{
		BaseCurrency:  "USD",
		Pairs:         []string{"ADA/USD", "LTC/USD"},
		Interval:      "1h",
		HistoryBars:   60,
		CycleInterval: 10 * time.Millisecond,
	}
	exec := config.ExecutionConfig{OrderType: string(models.OrderMarket), RetryAttempts: 3}

	paper := exchange.NewPaper("USD", 10000, nil)
	paper.SetBars("LTC/USD", flatBars(60, 100))

	book := portfolio.NewPortfolio(paper, trading, riskCfg)
	require.NoError(t, book.Refresh(context.Background()))
	pacer := execution.NewPacer(0)
	gw := execution.NewGateway(paper, pacer, exec)
	market := execution.NewPaced(paper, pacer)

	h := &harness{
		paper:    paper,
		combiner: &scripted{actions: map[string]models.Action{}, size: size},
		sent:     &neutralSentiment{},
		sink:     &sinkLog{},
		notes:    &notes{},
		state:    health.NewState(),
	}
	h.rm = risk.NewManager(riskCfg, exec, trading, book, gw, market, nil, h.notes)
	h.r = New(trading, market, indicators.NewEngine(), h.combiner, h.sent, h.rm, h.sink, h.state, h.notes)
	return h
}

func TestCycleOpensAndClosesOnSignals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.combiner.set("LTC/USD", models.ActionBuy)
	assert.False(t, h.r.RunCycle(ctx))
	assert.Equal(t, models.StateOpen, h.rm.State("LTC/USD"))

	// ADA без свечей пропущена, решение только по LTC
	require.Len(t, h.sink.all, 1)
	assert.Equal(t, "LTC/USD", h.sink.all[0].Pair)
	assert.False(t, h.sink.all[0].Time.IsZero())
	assert.Equal(t, 1, h.sent.calls)
	assert.EqualValues(t, 1, h.state.Cycles())

	h.combiner.set("LTC/USD", models.ActionSell)
	assert.False(t, h.r.RunCycle(ctx))
	assert.Equal(t, models.StateIdle, h.rm.State("LTC/USD"))
	assert.Len(t, h.paper.Placed(), 2)
}

func TestBuyWhileOpenIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.combiner.set("LTC/USD", models.ActionBuy)

	h.r.RunCycle(ctx)
	h.r.RunCycle(ctx)
	assert.Len(t, h.paper.Placed(), 1)
}

func TestDrawdownHaltsTrading(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.combiner.set("LTC/USD", models.ActionBuy)
	h.rm.AddDailyLoss(600)

	assert.True(t, h.r.RunCycle(ctx))
	assert.True(t, h.r.RunCycle(ctx))
	assert.True(t, h.state.Halted())
	assert.Empty(t, h.paper.Placed())
	assert.Empty(t, h.sink.all)
	assert.Zero(t, h.sent.calls)
	assert.Equal(t, 1, h.notes.count())
}

func TestDayRolloverResetsHalt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.combiner.set("LTC/USD", models.ActionBuy)

	now := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	h.r.now = func() time.Time { return now }
	h.rm.AddDailyLoss(600)
	require.True(t, h.r.RunCycle(ctx))

	now = now.Add(3 * time.Hour)
	assert.False(t, h.r.RunCycle(ctx))
	assert.False(t, h.state.Halted())
	assert.Zero(t, h.rm.DailyLoss())
	assert.Equal(t, models.StateOpen, h.rm.State("LTC/USD"))
}

func TestStopEndsStart(t *testing.T) {
	h := newHarness(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.r.Start(context.Background())
	}()

	require.Eventually(t, func() bool { return h.state.Cycles() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, h.state.Ready())

	h.r.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.False(t, h.state.Ready())
}

func TestCancelledContextStopsBetweenPairs(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.combiner.set("LTC/USD", models.ActionBuy)
	h.r.RunCycle(ctx)
	assert.Empty(t, h.sink.all)
	assert.Empty(t, h.paper.Placed())
}

func TestUnknownBalanceSkipsEntriesButMonitors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.combiner.set("LTC/USD", models.ActionBuy)
	h.paper.FailBalance(1)
	assert.False(t, h.r.RunCycle(ctx))
	assert.Empty(t, h.paper.Placed())
	assert.Equal(t, models.StateIdle, h.rm.State("LTC/USD"))
	require.Len(t, h.sink.all, 1)

	// баланс снова доступен
	h.r.RunCycle(ctx)
	require.Equal(t, models.StateOpen, h.rm.State("LTC/USD"))

	// без баланса защитный выход всё равно срабатывает
	h.combiner.set("LTC/USD", models.ActionHold)
	h.paper.FailBalance(1)
	h.paper.SetPrice("LTC/USD", 94)
	h.r.RunCycle(ctx)
	assert.False(t, h.rm.BalanceKnown())
	assert.Equal(t, models.StateIdle, h.rm.State("LTC/USD"))
	assert.Len(t, h.paper.Placed(), 2)
}

func TestDefaultRiskProfileCapsTradeNotional(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	ctx := context.Background()

	// vote-решение всегда с trade_size > 0.5: notional выше риска на сделку (2%)
	h := newHarnessWith(t, cfg.Risk, 0.6)
	h.combiner.set("LTC/USD", models.ActionBuy)
	h.r.RunCycle(ctx)
	assert.Empty(t, h.paper.Placed())
	assert.Equal(t, models.StateIdle, h.rm.State("LTC/USD"))

	// доля не больше risk_per_trade проходит: 0.02 * 9000 / 100 = 1.8
	h = newHarnessWith(t, cfg.Risk, cfg.Risk.RiskPerTrade)
	h.combiner.set("LTC/USD", models.ActionBuy)
	h.r.RunCycle(ctx)
	require.Len(t, h.paper.Placed(), 1)
	assert.InDelta(t, 1.8, h.paper.Placed()[0].Volume, 1e-9)
}
