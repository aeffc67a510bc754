package service

import (
	"math"
	"testing"
	"time"

	"multisignal_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFromCloses(closes ...float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = models.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   math.Max(open, c) + 1,
			Low:    math.Min(open, c) - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func rising(n int) []models.Bar {
	return barsFromCloses(series(n, func(i int) float64 { return 100 + float64(i) })...)
}

func falling(n int) []models.Bar {
	return barsFromCloses(series(n, func(i int) float64 { return 200 - float64(i) })...)
}

func flat(n int) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = models.Bar{Open: 50, High: 50, Low: 50, Close: 50, Volume: 0}
	}
	return out
}

func TestCatalogWeightsSumToOne(t *testing.T) {
	var sum float64
	names := map[string]bool{}
	for _, e := range Catalog() {
		sum += e.Weight
		assert.False(t, names[e.Name], "duplicate %s", e.Name)
		names[e.Name] = true
		assert.Greater(t, e.MinBars(), 0, e.Name)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.GreaterOrEqual(t, len(names), 20)
}

func TestShortHistoryIsHold(t *testing.T) {
	for _, e := range Catalog() {
		e := e
		t.Run(e.Name, func(t *testing.T) {
			assert.Equal(t, models.Hold, e.Fn(nil, e.Params))
			for _, bars := range [][]models.Bar{rising(e.MinBars() - 1), falling(e.MinBars() - 1)} {
				assert.Equal(t, models.Hold, e.Fn(bars, e.Params))
			}
		})
	}
}

func TestFlatSeriesNeverDividesByZero(t *testing.T) {
	bars := flat(120)
	for _, e := range Catalog() {
		assert.Equal(t, models.Hold, e.Fn(bars, e.Params), e.Name)
	}
	_, ok := RSIValue(models.Closes(bars), 14)
	assert.False(t, ok)
}

func TestRSIRisingSeriesTrendsTo100(t *testing.T) {
	closes := append([]float64{100, 99}, series(40, func(i int) float64 { return 100 + float64(i) })...)

	prev := -1.0
	for n := 16; n <= len(closes); n++ {
		v, ok := RSIValue(closes[:n], 14)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.Greater(t, prev, 70.0)

	p := Params{Period: 14, Lower: 30, Upper: 70}
	assert.Equal(t, models.StrongSell, RSI(barsFromCloses(closes...), p))

	v, ok := RSIValue(models.Closes(rising(20)), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
	assert.Equal(t, models.StrongSell, RSI(rising(20), p))
}

func TestRSIFallingSeriesIsStrongBuy(t *testing.T) {
	p := Params{Period: 14, Lower: 30, Upper: 70}
	assert.Equal(t, models.StrongBuy, RSI(falling(30), p))
}

func TestMovingAverages(t *testing.T) {
	up := rising(60)
	down := falling(60)

	assert.Equal(t, models.Buy, SMACross(up, Params{Fast: 10, Slow: 30}))
	assert.Equal(t, models.Sell, SMACross(down, Params{Fast: 10, Slow: 30}))
	assert.Equal(t, models.Buy, EMACross(up, Params{Fast: 12, Slow: 26}))
	assert.Equal(t, models.Sell, EMACross(down, Params{Fast: 12, Slow: 26}))
	assert.Equal(t, models.Buy, TripleMA(up, Params{Fast: 5, Mid: 10, Slow: 20}))
	assert.Equal(t, models.Sell, TripleMA(down, Params{Fast: 5, Mid: 10, Slow: 20}))
	assert.Equal(t, models.Buy, HullMA(up, Params{Fast: 9, Slow: 21}))
	assert.Equal(t, models.Sell, HullMA(down, Params{Fast: 9, Slow: 21}))
}

func TestMACDAcceleratingTrend(t *testing.T) {
	p := Params{Fast: 12, Slow: 26, Signal: 9}
	growth := barsFromCloses(series(80, func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) })...)
	decay := barsFromCloses(series(80, func(i int) float64 { return 100 * math.Pow(0.99, float64(i)) })...)

	assert.Equal(t, models.Buy, MACD(growth, p))
	assert.Equal(t, models.Sell, MACD(decay, p))

	_, _, ok := MACDValues(models.Closes(growth[:33]), p)
	assert.False(t, ok)
	_, _, ok = MACDValues(models.Closes(growth[:34]), p)
	assert.True(t, ok)
}

func TestOscillatorExtremes(t *testing.T) {
	down := falling(30)
	up := rising(30)

	assert.Equal(t, models.Buy, Stochastic(down, Params{Period: 14, Lower: 20, Upper: 80}))
	assert.Equal(t, models.Sell, Stochastic(up, Params{Period: 14, Lower: 20, Upper: 80}))
	assert.Equal(t, models.Buy, WilliamsR(down, Params{Period: 14, Lower: -80, Upper: -20}))
	assert.Equal(t, models.Sell, WilliamsR(up, Params{Period: 14, Lower: -80, Upper: -20}))
	assert.Equal(t, models.Buy, CCI(down, Params{Period: 20, Lower: -100, Upper: 100}))
	assert.Equal(t, models.Sell, CCI(up, Params{Period: 20, Lower: -100, Upper: 100}))
	assert.Equal(t, models.Buy, Momentum(up, Params{Period: 10}))
	assert.Equal(t, models.Sell, ROC(down, Params{Period: 12}))
	assert.Equal(t, models.Buy, OBV(up, Params{Period: 20}))
	assert.Equal(t, models.Sell, OBV(down, Params{Period: 20}))
}

func TestBandsBreakouts(t *testing.T) {
	base := series(25, func(i int) float64 { return 100 + float64(i%2) })

	crash := barsFromCloses(append(append([]float64{}, base...), 80)...)
	spike := barsFromCloses(append(append([]float64{}, base...), 120)...)

	assert.Equal(t, models.Buy, Bollinger(crash, Params{Period: 20, Mult: 2}))
	assert.Equal(t, models.Sell, Bollinger(spike, Params{Period: 20, Mult: 2}))
	assert.Equal(t, models.Buy, Keltner(crash, Params{Period: 20, Signal: 10, Mult: 2}))
	assert.Equal(t, models.Sell, Keltner(spike, Params{Period: 20, Signal: 10, Mult: 2}))
	assert.Equal(t, models.Buy, Donchian(crash, Params{Period: 20}))
	assert.Equal(t, models.Sell, Donchian(spike, Params{Period: 20}))

	calm := barsFromCloses(append(append([]float64{}, base...), 100.5)...)
	assert.Equal(t, models.Hold, Bollinger(calm, Params{Period: 20, Mult: 2}))
}

func TestLevels(t *testing.T) {
	prev := models.Bar{High: 110, Low: 90, Close: 100}
	pivot, s1, r1 := PivotLevels(prev)
	assert.Equal(t, 100.0, pivot)
	assert.Equal(t, 90.0, s1)
	assert.Equal(t, 110.0, r1)

	assert.Equal(t, models.Buy, Pivot([]models.Bar{prev, {Close: 85}}, Params{}))
	assert.Equal(t, models.Sell, Pivot([]models.Bar{prev, {Close: 115}}, Params{}))
	assert.Equal(t, models.Hold, Pivot([]models.Bar{prev, {Close: 100}}, Params{}))

	p := Params{Period: 50, Mult: 0.236}
	assert.Equal(t, models.Buy, Fibonacci(falling(60), p))
	assert.Equal(t, models.Sell, Fibonacci(rising(60), p))
}

func TestPatternHeuristics(t *testing.T) {
	assert.Equal(t, models.Buy, Elliott(rising(10), Params{Period: 10, Upper: 6}))
	assert.Equal(t, models.Sell, Elliott(falling(12), Params{Period: 10, Upper: 6}))

	zigzag := barsFromCloses(series(10, func(i int) float64 { return 100 + float64(i%2) })...)
	assert.Equal(t, models.Hold, Elliott(zigzag, Params{Period: 10, Upper: 6}))

	assert.Equal(t, models.Buy, Wyckoff(falling(25), Params{Period: 20, Mult: 0.1}))
	assert.Equal(t, models.Sell, Wyckoff(rising(25), Params{Period: 20, Mult: 0.1}))
}

func TestADXStrongTrend(t *testing.T) {
	p := Params{Period: 14, Upper: 25}
	assert.Equal(t, models.Buy, ADX(rising(60), p))
	assert.Equal(t, models.Sell, ADX(falling(60), p))

	adx, _, _, ok := ADXValues(rising(60), 14)
	require.True(t, ok)
	assert.Greater(t, adx, 25.0)
}

func TestATRIsContinuous(t *testing.T) {
	atr, ok := ATR(flat(10), 14)
	assert.False(t, ok)
	assert.Zero(t, atr)

	atr, ok = ATR(rising(40), 14)
	require.True(t, ok)
	// каждый бар: open = прошлый close, high/low на 1 шире диапазона
	assert.InDelta(t, 3.0, atr, 1e-9)
}

func TestEngineEvaluate(t *testing.T) {
	e := NewEngine()
	res := e.Evaluate(rising(200))

	require.Len(t, res.Signals, len(Catalog()))
	for i, entry := range Catalog() {
		assert.Equal(t, entry.Name, res.Signals[i].Name)
		assert.Equal(t, entry.Weight, res.Signals[i].Weight)
	}
	assert.True(t, res.ATROk)

	s, ok := res.Get("rsi")
	require.True(t, ok)
	assert.Equal(t, models.StrongSell, s)

	_, ok = res.Get("nope")
	assert.False(t, ok)

	empty := e.Evaluate(nil)
	for _, s := range empty.Signals {
		assert.Equal(t, models.Hold, s.Signal, s.Name)
	}
	assert.False(t, empty.ATROk)
}
