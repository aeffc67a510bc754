package helper

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// SplitPair: "ADA/USD" -> ("ADA", "USD"). Пары без разделителя считаем base без quote.
func SplitPair(pair string) (base, quote string) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if i := strings.IndexAny(p, "/-_"); i > 0 {
		return p[:i], p[i+1:]
	}
	return p, ""
}

func BaseAsset(pair string) string {
	base, _ := SplitPair(pair)
	return base
}

// RoundDownToStep: округление объёма вниз к шагу лота. Считаем в decimal, чтобы не ловить 0.30000000000000004.
func RoundDownToStep(v, step float64) float64 {
	if step <= 0 || !Finite(v) || !Finite(step) {
		return v
	}
	d := decimal.NewFromFloat(v)
	s := decimal.NewFromFloat(step)
	out, _ := d.Div(s).Floor().Mul(s).Float64()
	return out
}

// FormatAmount: строка для биржевого API с фиксированной точностью.
func FormatAmount(v float64, places int32) string {
	return decimal.NewFromFloat(v).Truncate(places).String()
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// Finite: false для NaN и ±Inf.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
