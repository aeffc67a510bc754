package models

import "time"

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderMarket   OrderType = "market"
	OrderLimit    OrderType = "limit"
	OrderStopLoss OrderType = "stop-loss"
)

// Order: Price обязателен для limit, StopPrice для stop-loss.
type Order struct {
	ID         string
	Pair       string
	Side       OrderSide
	Type       OrderType
	Volume     float64
	Price      float64
	StopPrice  float64
	Leverage   int
	ReduceOnly bool
}

type OrderStatus string

const (
	OrderNew      OrderStatus = "new"
	OrderPartial  OrderStatus = "partially_filled"
	OrderFilled   OrderStatus = "filled"
	OrderCanceled OrderStatus = "canceled"
)

// OrderState: что биржа знает об ордере. Filled и AvgPrice по исполненной части.
type OrderState struct {
	ID       string
	Status   OrderStatus
	Filled   float64
	AvgPrice float64
}

// Done: ордер больше не может исполниться.
func (s OrderState) Done() bool {
	return s.Status == OrderFilled || s.Status == OrderCanceled
}

type Fill struct {
	OrderID  string
	Pair     string
	Side     OrderSide
	Type     OrderType
	Volume   float64
	Price    float64
	Attempts int
	FilledAt time.Time
}

// TradeRecord: запись торгового журнала для отчётности.
type TradeRecord struct {
	Pair             string         `json:"pair"`
	Action           Action         `json:"action"`
	Size             float64        `json:"size"`
	Price            float64        `json:"price"`
	Reason           string         `json:"reason"`
	Time             time.Time      `json:"timestamp"`
	ResultingBalance float64        `json:"resulting_balance"`
	Breakdown        []Contribution `json:"breakdown,omitempty"`
}
