package service

import (
	"math"

	"multisignal_bot/internal/models"
)

func needPeriodPlusOne(p Params) int { return p.Period + 1 }
func needPeriod(p Params) int        { return p.Period }

// RSIValue: RSI по Уайлдеру. ok=false при нехватке истории или на плоском ряду (0/0).
// Нулевой средний убыток при ненулевой прибыли даёт предельное значение 100 без деления.
func RSIValue(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
	}

	switch {
	case loss == 0 && gain == 0:
		return 0, false
	case loss == 0:
		return 100, true
	}
	rsi := 100 - 100/(1+gain/loss)
	if !finite(rsi) {
		return 0, false
	}
	return rsi, true
}

// RSI: <Lower(30) StrongBuy, <50 Buy, >Upper(70) StrongSell, иначе Hold.
func RSI(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriodPlusOne(p) {
		return models.Hold
	}
	v, ok := RSIValue(models.Closes(bars), p.Period)
	if !ok {
		return models.Hold
	}
	switch {
	case v < p.Lower:
		return models.StrongBuy
	case v < 50:
		return models.Buy
	case v > p.Upper:
		return models.StrongSell
	default:
		return models.Hold
	}
}

// Stochastic: %K < Lower(20) Buy, > Upper(80) Sell.
func Stochastic(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	hh, ll := highestLowest(bars[len(bars)-p.Period:])
	rng := hh - ll
	if rng == 0 || !finite(rng) {
		return models.Hold
	}
	k := (bars[len(bars)-1].Close - ll) / rng * 100
	switch {
	case k < p.Lower:
		return models.Buy
	case k > p.Upper:
		return models.Sell
	default:
		return models.Hold
	}
}

// WilliamsR: %R < Lower(-80) Buy, > Upper(-20) Sell.
func WilliamsR(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	hh, ll := highestLowest(bars[len(bars)-p.Period:])
	rng := hh - ll
	if rng == 0 || !finite(rng) {
		return models.Hold
	}
	r := (hh - bars[len(bars)-1].Close) / rng * -100
	switch {
	case r < p.Lower:
		return models.Buy
	case r > p.Upper:
		return models.Sell
	default:
		return models.Hold
	}
}

// CCI: < Lower(-100) Buy, > Upper(100) Sell. Нулевое среднее отклонение даёт Hold.
func CCI(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	window := bars[len(bars)-p.Period:]
	tp := make([]float64, len(window))
	for i, b := range window {
		tp[i] = typicalPrice(b)
	}
	m := mean(tp)
	var dev float64
	for _, v := range tp {
		dev += math.Abs(v - m)
	}
	dev /= float64(len(tp))
	if dev == 0 {
		return models.Hold
	}
	cci := (tp[len(tp)-1] - m) / (0.015 * dev)
	if !finite(cci) {
		return models.Hold
	}
	switch {
	case cci < p.Lower:
		return models.Buy
	case cci > p.Upper:
		return models.Sell
	default:
		return models.Hold
	}
}

func Momentum(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriodPlusOne(p) || p.Period <= 0 {
		return models.Hold
	}
	last := len(bars) - 1
	return sign(bars[last].Close - bars[last-p.Period].Close)
}

// ROC: процентное изменение за Period баров, нулевая база даёт Hold.
func ROC(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriodPlusOne(p) || p.Period <= 0 {
		return models.Hold
	}
	last := len(bars) - 1
	base := bars[last-p.Period].Close
	if base == 0 {
		return models.Hold
	}
	roc := (bars[last].Close - base) / base * 100
	if !finite(roc) {
		return models.Hold
	}
	return sign(roc)
}
