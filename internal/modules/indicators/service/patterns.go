package service

import (
	"multisignal_bot/internal/models"
)

// Эвристики, не каноническое распознавание паттернов.

// Elliott: на последних Period барах считаем направленные закрытия.
// Не меньше Upper ростов (импульс вверх) Buy, не меньше Upper падений Sell.
func Elliott(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period < 2 {
		return models.Hold
	}
	window := bars[len(bars)-p.Period:]
	var ups, downs int
	for i := 1; i < len(window); i++ {
		switch {
		case window[i].Close > window[i-1].Close:
			ups++
		case window[i].Close < window[i-1].Close:
			downs++
		}
	}
	need := int(p.Upper)
	switch {
	case ups >= need && ups > downs:
		return models.Buy
	case downs >= need && downs > ups:
		return models.Sell
	default:
		return models.Hold
	}
}

// Wyckoff: близость к скользящему минимуму (накопление) Buy, к максимуму (распределение) Sell.
func Wyckoff(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	hh, ll := highestLowest(bars[len(bars)-p.Period:])
	rng := hh - ll
	if rng <= 0 || !finite(rng) {
		return models.Hold
	}
	pos := (bars[len(bars)-1].Close - ll) / rng
	switch {
	case pos <= p.Mult:
		return models.Buy
	case pos >= 1-p.Mult:
		return models.Sell
	default:
		return models.Hold
	}
}
