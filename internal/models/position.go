package models

import "time"

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

type Position struct {
	Pair       string
	Amount     float64
	Leverage   int
	EntryPrice float64
	// HighWater: максимум цены с момента входа, нужен трейлинг-стопу.
	HighWater float64
	Status    PositionStatus
	OpenedAt  time.Time
	// StopOrderID: защитный stop-loss на бирже, если он выставлялся.
	StopOrderID string
}

func (p Position) Notional() float64 { return p.Amount * p.EntryPrice }

// PairState: жизненный цикл пары в риск-менеджере.
type PairState int

const (
	StateIdle PairState = iota
	StatePendingOpen
	StateOpen
	StateClosing
)

func (s PairState) String() string {
	switch s {
	case StatePendingOpen:
		return "pending_open"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "idle"
	}
}

type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitTrailing   ExitReason = "trailing_stop"
	ExitSignal     ExitReason = "signal"
)
