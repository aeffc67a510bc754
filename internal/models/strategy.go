package models

import "time"

// Signal: дискретный сигнал индикатора. Числовое значение совпадает с голосом.
type Signal int

const (
	StrongSell Signal = -2
	Sell       Signal = -1
	Hold       Signal = 0
	Buy        Signal = 1
	StrongBuy  Signal = 2
)

func (s Signal) String() string {
	switch s {
	case StrongBuy:
		return "strong_buy"
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case StrongSell:
		return "strong_sell"
	default:
		return "hold"
	}
}

// Vote: шкала взвешенного голосования {2,1,0,-1,-2}.
func (s Signal) Vote() float64 {
	switch s {
	case StrongBuy, Buy, Hold, Sell, StrongSell:
		return float64(s)
	default:
		return 0
	}
}

// Score: шкала бинарного слияния {1,.5,0,-.5,-1}.
func (s Signal) Score() float64 { return s.Vote() / 2 }

type StrategyMode string

const (
	StrategyBinary StrategyMode = "binary"
	StrategyVote   StrategyMode = "vote"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Contribution: вклад одного источника в решение (для наблюдаемости).
type Contribution struct {
	Name   string  `json:"name"`
	Signal Signal  `json:"signal"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// Decision: TradeSize всегда доля доступного капитала в [0,1], не количество.
type Decision struct {
	Pair      string         `json:"pair"`
	Action    Action         `json:"action"`
	TradeSize float64        `json:"trade_size"`
	Score     float64        `json:"score"`
	Strategy  StrategyMode   `json:"strategy"`
	Breakdown []Contribution `json:"breakdown"`
	Time      time.Time      `json:"time"`
}
