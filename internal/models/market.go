package models

import "time"

// Bar: одна свеча OHLCV. Срез []Bar всегда по возрастанию времени.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type Ticker struct {
	Pair      string
	LastPrice float64
	Time      time.Time
}

func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
