package service

import (
	"multisignal_bot/internal/models"
)

// Bollinger: SMA(Period) ± Mult*σ.
func Bollinger(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	c := models.Closes(bars[len(bars)-p.Period:])
	m, sd := mean(c), stddev(c)
	return bands(c[len(c)-1], m-p.Mult*sd, m+p.Mult*sd)
}

func needKeltner(p Params) int {
	if p.Signal+1 > p.Period {
		return p.Signal + 1
	}
	return p.Period
}

// Keltner: EMA(Period) ± Mult*ATR(Signal). Signal здесь период ATR.
func Keltner(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needKeltner(p) || p.Period <= 0 {
		return models.Hold
	}
	atr, ok := wilderATR(bars, p.Signal)
	if !ok {
		return models.Hold
	}
	mid := lastEMA(models.Closes(bars), p.Period)
	return bands(bars[len(bars)-1].Close, mid-p.Mult*atr, mid+p.Mult*atr)
}

// Donchian: канал по Period барам до текущего, текущий бар сравнивается с ним.
func Donchian(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriodPlusOne(p) || p.Period <= 0 {
		return models.Hold
	}
	last := len(bars) - 1
	hh, ll := highestLowest(bars[last-p.Period : last])
	return bands(bars[last].Close, ll, hh)
}

// ATR: непрерывная волатильность, в голосовании не участвует.
func ATR(bars []models.Bar, period int) (float64, bool) {
	return wilderATR(bars, period)
}
