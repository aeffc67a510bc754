package service

import (
	"multisignal_bot/internal/models"
)

func needTwo(Params) int { return 2 }

// PivotLevels: классический пивот по предыдущему бару.
func PivotLevels(prev models.Bar) (pivot, s1, r1 float64) {
	pivot = (prev.High + prev.Low + prev.Close) / 3
	return pivot, 2*pivot - prev.High, 2*pivot - prev.Low
}

func Pivot(bars []models.Bar, _ Params) models.Signal {
	if len(bars) < 2 {
		return models.Hold
	}
	_, s1, r1 := PivotLevels(bars[len(bars)-2])
	return bands(bars[len(bars)-1].Close, s1, r1)
}

// Fibonacci: глубокий откат (ниже уровня Mult от минимума) Buy, у максимума Sell.
func Fibonacci(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	hh, ll := highestLowest(bars[len(bars)-p.Period:])
	rng := hh - ll
	if rng <= 0 || !finite(rng) {
		return models.Hold
	}
	c := bars[len(bars)-1].Close
	switch {
	case c <= ll+p.Mult*rng:
		return models.Buy
	case c >= hh-p.Mult*rng:
		return models.Sell
	default:
		return models.Hold
	}
}
