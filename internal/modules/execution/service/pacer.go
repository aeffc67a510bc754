package service

import (
	"context"
	"time"

	"multisignal_bot/internal/models"

	"golang.org/x/time/rate"
)

// Pacer держит паузу между внешними вызовами внутри цикла. Один на процесс.
type Pacer struct {
	limiter *rate.Limiter
}

func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Paced: MarketDataCapability, каждый вызов которой проходит через общий Pacer.
type Paced struct {
	next  models.MarketDataCapability
	pacer *Pacer
}

func NewPaced(next models.MarketDataCapability, pacer *Pacer) *Paced {
	return &Paced{next: next, pacer: pacer}
}

func (p *Paced) GetTicker(ctx context.Context, pair string) (models.Ticker, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return models.Ticker{}, models.NewError(models.KindConnectivity, "Paced.GetTicker", err)
	}
	return p.next.GetTicker(ctx, pair)
}

func (p *Paced) GetOHLC(ctx context.Context, pair, interval string, limit int) ([]models.Bar, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return nil, models.NewError(models.KindConnectivity, "Paced.GetOHLC", err)
	}
	return p.next.GetOHLC(ctx, pair, interval, limit)
}
