package service

import (
	"math"

	"multisignal_bot/internal/models"
)

func needSlow(p Params) int { return p.Slow }

func SMACross(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needSlow(p) || p.Fast <= 0 {
		return models.Hold
	}
	c := models.Closes(bars)
	end := len(c) - 1
	return cross(smaAt(c, end, p.Fast), smaAt(c, end, p.Slow))
}

func EMACross(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needSlow(p) || p.Fast <= 0 {
		return models.Hold
	}
	c := models.Closes(bars)
	return cross(lastEMA(c, p.Fast), lastEMA(c, p.Slow))
}

// TripleMA: покупка только при строгом порядке fast > mid > slow.
func TripleMA(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needSlow(p) || p.Fast <= 0 || p.Mid <= 0 {
		return models.Hold
	}
	c := models.Closes(bars)
	end := len(c) - 1
	f, m, s := smaAt(c, end, p.Fast), smaAt(c, end, p.Mid), smaAt(c, end, p.Slow)
	switch {
	case f > m && m > s:
		return models.Buy
	case f < m && m < s:
		return models.Sell
	default:
		return models.Hold
	}
}

func needHull(p Params) int {
	return p.Slow + int(math.Sqrt(float64(p.Slow))) - 1
}

// hull: HMA(n) = WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
func hull(xs []float64, n int) (float64, bool) {
	half, s := n/2, int(math.Sqrt(float64(n)))
	if half < 1 || s < 1 || len(xs) < n+s-1 {
		return 0, false
	}
	diff := make([]float64, s)
	for j := 0; j < s; j++ {
		end := len(xs) - s + j
		diff[j] = 2*wmaAt(xs, end, half) - wmaAt(xs, end, n)
	}
	return wmaAt(diff, s-1, s), true
}

func HullMA(bars []models.Bar, p Params) models.Signal {
	if len(bars) < needHull(p) {
		return models.Hold
	}
	c := models.Closes(bars)
	fast, ok1 := hull(c, p.Fast)
	slow, ok2 := hull(c, p.Slow)
	if !ok1 || !ok2 {
		return models.Hold
	}
	return cross(fast, slow)
}

func needMACD(p Params) int { return p.Slow + p.Signal - 1 }

// MACDValues: линия MACD и сигнальная линия на последнем баре.
func MACDValues(closes []float64, p Params) (macd, signal float64, ok bool) {
	if p.Fast <= 0 || p.Slow <= p.Fast || p.Signal <= 0 || len(closes) < needMACD(p) {
		return 0, 0, false
	}
	fast := emaSeries(closes, p.Fast)
	slow := emaSeries(closes, p.Slow)
	line := make([]float64, 0, len(closes)-p.Slow+1)
	for i := p.Slow - 1; i < len(closes); i++ {
		line = append(line, fast[i]-slow[i])
	}
	return line[len(line)-1], lastEMA(line, p.Signal), true
}

func MACD(bars []models.Bar, p Params) models.Signal {
	m, s, ok := MACDValues(models.Closes(bars), p)
	if !ok {
		return models.Hold
	}
	return sign(m - s)
}
