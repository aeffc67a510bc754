package service

import (
	"math"

	"multisignal_bot/internal/models"
)

// OBV: знак накопленного объёма за Period баров.
func OBV(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriodPlusOne(p) || p.Period <= 0 {
		return models.Hold
	}
	var obv float64
	for i := len(bars) - p.Period; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			obv += bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			obv -= bars[i].Volume
		}
	}
	return sign(obv)
}

// VWAP: цена ниже VWAP*(1-Mult) Buy, выше VWAP*(1+Mult) Sell. Нулевой объём даёт Hold.
func VWAP(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needPeriod(p) || p.Period <= 0 {
		return models.Hold
	}
	var pv, vol float64
	for _, b := range bars[len(bars)-p.Period:] {
		pv += typicalPrice(b) * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return models.Hold
	}
	vwap := pv / vol
	if !finite(vwap) {
		return models.Hold
	}
	return bands(bars[len(bars)-1].Close, vwap*(1-p.Mult), vwap*(1+p.Mult))
}

func needADX(p Params) int { return 2 * p.Period }

// ADXValues: ADX, +DI, -DI по Уайлдеру.
func ADXValues(bars []models.Bar, period int) (adx, pdi, mdi float64, ok bool) {
	if period <= 0 || len(bars) < 2*period {
		return 0, 0, 0, false
	}
	n := len(bars)
	tr := make([]float64, n)
	pdm := make([]float64, n)
	mdm := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(bars[i], bars[i-1])
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			pdm[i] = up
		}
		if down > up && down > 0 {
			mdm[i] = down
		}
	}

	var sTR, sP, sM float64
	for i := 1; i <= period; i++ {
		sTR += tr[i]
		sP += pdm[i]
		sM += mdm[i]
	}

	dxs := make([]float64, 0, n-period)
	for i := period; i < n; i++ {
		if i > period {
			sTR = sTR - sTR/float64(period) + tr[i]
			sP = sP - sP/float64(period) + pdm[i]
			sM = sM - sM/float64(period) + mdm[i]
		}
		if sTR == 0 {
			return 0, 0, 0, false
		}
		pdi = 100 * sP / sTR
		mdi = 100 * sM / sTR
		dx := 0.0
		if s := pdi + mdi; s != 0 {
			dx = 100 * math.Abs(pdi-mdi) / s
		}
		dxs = append(dxs, dx)
	}
	if len(dxs) < period {
		return 0, 0, 0, false
	}

	adx = mean(dxs[:period])
	for _, dx := range dxs[period:] {
		adx = (adx*float64(period-1) + dx) / float64(period)
	}
	return adx, pdi, mdi, finite(adx, pdi, mdi)
}

// ADX: сигнал только при сильном тренде (ADX >= Upper), направление по DI.
func ADX(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needADX(p) {
		return models.Hold
	}
	adx, pdi, mdi, ok := ADXValues(bars, p.Period)
	if !ok || adx < p.Upper {
		return models.Hold
	}
	return cross(pdi, mdi)
}
