package models

import "context"

// Внешние возможности. Реализации живут в exchange/sentiment/journal.

type AccountCapability interface {
	GetBalance(ctx context.Context) (map[string]float64, error)
}

type MarketDataCapability interface {
	GetTicker(ctx context.Context, pair string) (Ticker, error)
	GetOHLC(ctx context.Context, pair, interval string, limit int) ([]Bar, error)
}

type OrderCapability interface {
	PlaceOrder(ctx context.Context, order Order) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (OrderState, error)
}

type SentimentSource interface {
	Name() string
	Fetch(ctx context.Context) ([]RawDocument, error)
}

type TextScorer interface {
	Score(ctx context.Context, text string) (Polarity, float64, error)
}

type TradeLog interface {
	Record(ctx context.Context, rec TradeRecord) error
}

type DecisionSink interface {
	Publish(d Decision)
}
