package service

import (
	"math"

	"multisignal_bot/internal/models"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// smaAt: среднее n значений, заканчивающихся на индексе end включительно.
func smaAt(xs []float64, end, n int) float64 {
	return mean(xs[end-n+1 : end+1])
}

func stddev(xs []float64) float64 {
	m := mean(xs)
	var s float64
	for _, x := range xs {
		s += (x - m) * (x - m)
	}
	return math.Sqrt(s / float64(len(xs)))
}

// emaSeries: EMA с затравкой SMA(n). Значения валидны начиная с индекса n-1, до него нули.
func emaSeries(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	if n <= 0 || len(xs) < n {
		return out
	}
	alpha := 2.0 / (float64(n) + 1)
	out[n-1] = smaAt(xs, n-1, n)
	for i := n; i < len(xs); i++ {
		out[i] = out[i-1] + alpha*(xs[i]-out[i-1])
	}
	return out
}

func lastEMA(xs []float64, n int) float64 {
	s := emaSeries(xs, n)
	return s[len(s)-1]
}

// wmaAt: линейно взвешенное среднее, самый свежий элемент с весом n.
func wmaAt(xs []float64, end, n int) float64 {
	var num, den float64
	for i := 0; i < n; i++ {
		w := float64(n - i)
		num += w * xs[end-i]
		den += w
	}
	return num / den
}

func highestLowest(bars []models.Bar) (hh, ll float64) {
	hh, ll = math.Inf(-1), math.Inf(1)
	for _, b := range bars {
		hh = math.Max(hh, b.High)
		ll = math.Min(ll, b.Low)
	}
	return hh, ll
}

func trueRange(cur, prev models.Bar) float64 {
	return math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// wilderATR: первая точка = среднее первых n TR, дальше сглаживание Уайлдера.
func wilderATR(bars []models.Bar, n int) (float64, bool) {
	if n <= 0 || len(bars) < n+1 {
		return 0, false
	}
	var atr float64
	for i := 1; i <= n; i++ {
		atr += trueRange(bars[i], bars[i-1])
	}
	atr /= float64(n)
	for i := n + 1; i < len(bars); i++ {
		atr = (atr*float64(n-1) + trueRange(bars[i], bars[i-1])) / float64(n)
	}
	return atr, true
}

func typicalPrice(b models.Bar) float64 { return (b.High + b.Low + b.Close) / 3 }

// cross: общий маппинг «быстрая против медленной».
func cross(fast, slow float64) models.Signal {
	switch {
	case fast > slow:
		return models.Buy
	case fast < slow:
		return models.Sell
	default:
		return models.Hold
	}
}

// bands: ниже нижней границы покупка, выше верхней продажа.
func bands(price, lower, upper float64) models.Signal {
	switch {
	case price < lower:
		return models.Buy
	case price > upper:
		return models.Sell
	default:
		return models.Hold
	}
}

func sign(v float64) models.Signal {
	switch {
	case v > 0:
		return models.Buy
	case v < 0:
		return models.Sell
	default:
		return models.Hold
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
