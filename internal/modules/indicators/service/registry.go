package service

import (
	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"
)

// Params: общий набор параметров. Каждый индикатор читает только свои поля.
type Params struct {
	Period int
	Fast   int
	Mid    int
	Slow   int
	Signal int
	Mult   float64
	Lower  float64
	Upper  float64
}

type Func func(bars []models.Bar, p Params) models.Signal

// Entry: запись статического реестра (имя -> функция + параметры + вес).
type Entry struct {
	Name   string
	Fn     Func
	Params Params
	Weight float64
	need   func(Params) int
}

// MinBars: минимальная история, ниже которой индикатор отдаёт Hold.
func (e Entry) MinBars() int { return e.need(e.Params) }

// Веса в сумме дают 1.0.
var registry = []Entry{
	{Name: "sma_cross", Fn: SMACross, Params: Params{Fast: 10, Slow: 30}, Weight: 0.05, need: needSlow},
	{Name: "ema_cross", Fn: EMACross, Params: Params{Fast: 12, Slow: 26}, Weight: 0.06, need: needSlow},
	{Name: "triple_ma", Fn: TripleMA, Params: Params{Fast: 5, Mid: 10, Slow: 20}, Weight: 0.04, need: needSlow},
	{Name: "hull_ma", Fn: HullMA, Params: Params{Fast: 9, Slow: 21}, Weight: 0.04, need: needHull},
	{Name: "macd", Fn: MACD, Params: Params{Fast: 12, Slow: 26, Signal: 9}, Weight: 0.09, need: needMACD},
	{Name: "rsi", Fn: RSI, Params: Params{Period: 14, Lower: 30, Upper: 70}, Weight: 0.09, need: needPeriodPlusOne},
	{Name: "stochastic", Fn: Stochastic, Params: Params{Period: 14, Lower: 20, Upper: 80}, Weight: 0.05, need: needPeriod},
	{Name: "williams_r", Fn: WilliamsR, Params: Params{Period: 14, Lower: -80, Upper: -20}, Weight: 0.04, need: needPeriod},
	{Name: "cci", Fn: CCI, Params: Params{Period: 20, Lower: -100, Upper: 100}, Weight: 0.04, need: needPeriod},
	{Name: "bollinger", Fn: Bollinger, Params: Params{Period: 20, Mult: 2}, Weight: 0.06, need: needPeriod},
	{Name: "keltner", Fn: Keltner, Params: Params{Period: 20, Signal: 10, Mult: 2}, Weight: 0.04, need: needKeltner},
	{Name: "donchian", Fn: Donchian, Params: Params{Period: 20}, Weight: 0.04, need: needPeriodPlusOne},
	{Name: "momentum", Fn: Momentum, Params: Params{Period: 10}, Weight: 0.05, need: needPeriodPlusOne},
	{Name: "roc", Fn: ROC, Params: Params{Period: 12}, Weight: 0.04, need: needPeriodPlusOne},
	{Name: "obv", Fn: OBV, Params: Params{Period: 20}, Weight: 0.04, need: needPeriodPlusOne},
	{Name: "adx", Fn: ADX, Params: Params{Period: 14, Upper: 25}, Weight: 0.05, need: needADX},
	{Name: "vwap", Fn: VWAP, Params: Params{Period: 20, Mult: 0.01}, Weight: 0.04, need: needPeriod},
	{Name: "pivot", Fn: Pivot, Weight: 0.04, need: needTwo},
	{Name: "fibonacci", Fn: Fibonacci, Params: Params{Period: 50, Mult: 0.236}, Weight: 0.03, need: needPeriod},
	{Name: "elliott", Fn: Elliott, Params: Params{Period: 10, Upper: 6}, Weight: 0.03, need: needPeriod},
	{Name: "wyckoff", Fn: Wyckoff, Params: Params{Period: 20, Mult: 0.1}, Weight: 0.04, need: needPeriod},
}

const atrPeriod = 14

// Catalog возвращает копию реестра.
func Catalog() []Entry {
	out := make([]Entry, len(registry))
	copy(out, registry)
	return out
}

type Named struct {
	Name   string
	Signal models.Signal
	Weight float64
}

type Result struct {
	Signals []Named
	// ATR: контекст волатильности для риск-менеджера, в голосовании не участвует.
	ATR   float64
	ATROk bool
}

func (r Result) Get(name string) (models.Signal, bool) {
	for _, s := range r.Signals {
		if s.Name == name {
			return s.Signal, true
		}
	}
	return models.Hold, false
}

type Engine struct {
	entries []Entry
}

func NewEngine() *Engine {
	return &Engine{entries: Catalog()}
}

// Evaluate прогоняет весь каталог по истории одной пары. Порядок сигналов совпадает с реестром.
func (e *Engine) Evaluate(bars []models.Bar) Result {
	res := Result{Signals: make([]Named, 0, len(e.entries))}
	short := 0
	for _, entry := range e.entries {
		if len(bars) < entry.MinBars() {
			short++
		}
		res.Signals = append(res.Signals, Named{
			Name:   entry.Name,
			Signal: entry.Fn(bars, entry.Params),
			Weight: entry.Weight,
		})
	}
	res.ATR, res.ATROk = ATR(bars, atrPeriod)
	if short > 0 {
		logger.Info("[SIGNAL] %d/%d indicators lack history (%d bars), forced to hold", short, len(e.entries), len(bars))
	}
	return res
}
