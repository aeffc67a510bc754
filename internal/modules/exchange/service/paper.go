package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"
)

// Paper: бумажная биржа. Ордера исполняются в памяти по последней цене.
// Если задан market, цены и свечи берутся оттуда (реальные данные, фиктивные сделки).
type Paper struct {
	mu           sync.Mutex
	market       models.MarketDataCapability
	baseCurrency string

	balances map[string]float64
	prices   map[string]float64
	bars     map[string][]models.Bar
	resting  map[string]models.Order
	orders   map[string]models.OrderState
	seq      int

	failNext  int
	failErr   error
	failCalls map[string]int
	placed    []models.Order
}

func NewPaper(baseCurrency string, balance float64, market models.MarketDataCapability) *Paper {
	base := strings.ToUpper(baseCurrency)
	return &Paper{
		market:       market,
		baseCurrency: base,
		balances:     map[string]float64{base: balance},
		prices:       make(map[string]float64),
		bars:         make(map[string][]models.Bar),
		resting:      make(map[string]models.Order),
		orders:       make(map[string]models.OrderState),
		failCalls:    make(map[string]int),
	}
}

func (p *Paper) SetPrice(pair string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[pair] = price
}

func (p *Paper) SetBars(pair string, bars []models.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars[pair] = append([]models.Bar(nil), bars...)
	if len(bars) > 0 {
		p.prices[pair] = bars[len(bars)-1].Close
	}
}

// FailNext: следующие n вызовов PlaceOrder вернут err (для тестов ретраев).
func (p *Paper) FailNext(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext, p.failErr = n, err
}

// FailBalance: следующие n вызовов GetBalance вернут ошибку связи.
func (p *Paper) FailBalance(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCalls["balance"] = n
}

func (p *Paper) Placed() []models.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Order(nil), p.placed...)
}

func (p *Paper) Resting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resting)
}

func (p *Paper) GetBalance(_ context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCalls["balance"] > 0 {
		p.failCalls["balance"]--
		return nil, models.Errorf(models.KindConnectivity, "Paper.GetBalance", "balance endpoint unavailable")
	}
	out := make(map[string]float64, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out, nil
}

func (p *Paper) GetTicker(ctx context.Context, pair string) (models.Ticker, error) {
	if p.market != nil {
		t, err := p.market.GetTicker(ctx, pair)
		if err != nil {
			return models.Ticker{}, err
		}
		p.SetPrice(pair, t.LastPrice)
		return t, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	px, ok := p.prices[pair]
	if !ok || px <= 0 {
		return models.Ticker{}, models.Errorf(models.KindConnectivity, "Paper.GetTicker", "no price for %s", pair)
	}
	return models.Ticker{Pair: pair, LastPrice: px, Time: time.Now()}, nil
}

func (p *Paper) GetOHLC(ctx context.Context, pair, interval string, limit int) ([]models.Bar, error) {
	if p.market != nil {
		bars, err := p.market.GetOHLC(ctx, pair, interval, limit)
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			p.SetPrice(pair, bars[len(bars)-1].Close)
		}
		return bars, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	bars, ok := p.bars[pair]
	if !ok {
		return nil, models.Errorf(models.KindConnectivity, "Paper.GetOHLC", "no bars for %s", pair)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return append([]models.Bar(nil), bars...), nil
}

func (p *Paper) PlaceOrder(_ context.Context, o models.Order) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext > 0 {
		p.failNext--
		return "", models.NewError(models.KindConnectivity, "Paper.PlaceOrder", p.failErr)
	}

	p.seq++
	id := fmt.Sprintf("paper-%d", p.seq)
	p.placed = append(p.placed, o)

	last := p.prices[o.Pair]
	switch o.Type {
	case models.OrderStopLoss:
		p.rest(id, o)
		return id, nil
	case models.OrderLimit:
		if !marketable(o, last) {
			p.rest(id, o)
			return id, nil
		}
	default:
		if last <= 0 {
			return "", models.Errorf(models.KindConnectivity, "Paper.PlaceOrder", "no price for %s", o.Pair)
		}
	}

	if err := p.settle(o, last); err != nil {
		return "", err
	}
	p.orders[id] = models.OrderState{ID: id, Status: models.OrderFilled, Filled: o.Volume, AvgPrice: last}
	return id, nil
}

func (p *Paper) rest(id string, o models.Order) {
	p.resting[id] = o
	p.orders[id] = models.OrderState{ID: id, Status: models.OrderNew}
}

func marketable(o models.Order, last float64) bool {
	if last <= 0 {
		return false
	}
	if o.Side == models.SideBuy {
		return o.Price >= last
	}
	return o.Price <= last
}

// settle: спот-модель, плечо на кэш не влияет.
func (p *Paper) settle(o models.Order, px float64) error {
	asset := helper.BaseAsset(o.Pair)
	notional := o.Volume * px
	switch o.Side {
	case models.SideBuy:
		if p.balances[p.baseCurrency] < notional {
			return models.Errorf(models.KindValidation, "Paper.PlaceOrder", "insufficient %s: need %.2f", p.baseCurrency, notional)
		}
		p.balances[p.baseCurrency] -= notional
		p.balances[asset] += o.Volume
	case models.SideSell:
		p.balances[asset] -= o.Volume
		p.balances[p.baseCurrency] += notional
	}
	return nil
}

// GetOrder: лежащий limit-ордер исполняется в момент запроса, если цена до него дошла.
func (p *Paper) GetOrder(ctx context.Context, orderID string) (models.OrderState, error) {
	p.mu.Lock()
	o, resting := p.resting[orderID]
	p.mu.Unlock()
	if resting && p.market != nil {
		if _, err := p.GetTicker(ctx, o.Pair); err != nil {
			return models.OrderState{}, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.orders[orderID]
	if !ok {
		return models.OrderState{}, models.Errorf(models.KindValidation, "Paper.GetOrder", "order %s not found", orderID)
	}
	if !resting || o.Type != models.OrderLimit {
		return st, nil
	}
	last := p.prices[o.Pair]
	if !marketable(o, last) {
		return st, nil
	}
	delete(p.resting, orderID)
	if err := p.settle(o, last); err != nil {
		logger.Warn("[EXCH] paper %s dropped: %v", orderID, err)
		st.Status = models.OrderCanceled
	} else {
		st = models.OrderState{ID: orderID, Status: models.OrderFilled, Filled: o.Volume, AvgPrice: last}
	}
	p.orders[orderID] = st
	return st, nil
}

func (p *Paper) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.resting[orderID]; !ok {
		return models.Errorf(models.KindValidation, "Paper.CancelOrder", "order %s not found", orderID)
	}
	delete(p.resting, orderID)
	st := p.orders[orderID]
	st.Status = models.OrderCanceled
	p.orders[orderID] = st
	return nil
}
