package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	"multisignal_bot/pkg/logger"
)

// Portfolio: балансы и открытые позиции. Пишут в него только risk.Manager и runner.
type Portfolio struct {
	mu sync.RWMutex

	account      models.AccountCapability
	baseCurrency string
	reserve      float64
	leverage     map[string]int

	balances  map[string]float64
	known     bool
	positions map[string]models.Position
}

func NewPortfolio(account models.AccountCapability, trading config.TradingConfig, risk config.RiskConfig) *Portfolio {
	lev := make(map[string]int, len(risk.Leverage))
	for k, v := range risk.Leverage {
		lev[strings.ToUpper(k)] = v
	}
	return &Portfolio{
		account:      account,
		baseCurrency: strings.ToUpper(trading.BaseCurrency),
		reserve:      risk.Reserve,
		leverage:     lev,
		balances:     make(map[string]float64),
		positions:    make(map[string]models.Position),
	}
}

// Refresh: при ошибке снимок помечается неизвестным. Неизвестный баланс не равен нулю.
func (p *Portfolio) Refresh(ctx context.Context) error {
	bal, err := p.account.GetBalance(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.known = false
		if models.KindOf(err) == models.KindUnknown {
			err = models.NewError(models.KindConnectivity, "Portfolio.Refresh", err)
		}
		return err
	}
	p.balances = make(map[string]float64, len(bal))
	for k, v := range bal {
		p.balances[strings.ToUpper(k)] = v
	}
	p.known = true
	return nil
}

func (p *Portfolio) Known() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.known
}

func (p *Portfolio) BaseCurrency() string { return p.baseCurrency }

// TotalBalance: баланс в базовой валюте по последнему снимку.
func (p *Portfolio) TotalBalance() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[p.baseCurrency]
}

// AvailableBalance: total за вычетом резерва.
func (p *Portfolio) AvailableBalance() float64 {
	return p.TotalBalance() * (1 - p.reserve)
}

func (p *Portfolio) Balances() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]float64, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out
}

func (p *Portfolio) Leverage(pair string) int {
	if lev, ok := p.leverage[helper.BaseAsset(pair)]; ok && lev > 0 {
		return lev
	}
	return 1
}

// Exposure: notional в процентах от доступного баланса. 0 при нулевом доступном.
func (p *Portfolio) Exposure(notional float64) float64 {
	avail := p.AvailableBalance()
	if avail <= 0 {
		return 0
	}
	return notional / avail * 100
}

func (p *Portfolio) OpenNotional() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var sum float64
	for _, pos := range p.positions {
		sum += pos.Notional()
	}
	return sum
}

func (p *Portfolio) AddPosition(pos models.Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.positions[pos.Pair]; ok {
		return models.Errorf(models.KindValidation, "Portfolio.AddPosition", "position for %s already open", pos.Pair)
	}
	pos.Status = models.PositionOpen
	if pos.HighWater < pos.EntryPrice {
		pos.HighWater = pos.EntryPrice
	}
	p.positions[pos.Pair] = pos
	return nil
}

func (p *Portfolio) ClosePosition(pair string) (models.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[pair]
	if !ok {
		return models.Position{}, false
	}
	delete(p.positions, pair)
	pos.Status = models.PositionClosed
	return pos, true
}

func (p *Portfolio) Position(pair string) (models.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[pair]
	return pos, ok
}

// Positions: копия, отсортирована по паре.
func (p *Portfolio) Positions() []models.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

func (p *Portfolio) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.positions)
}

// UpdateHighWater возвращает актуальный максимум цены для трейлинг-стопа.
func (p *Portfolio) UpdateHighWater(pair string, price float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[pair]
	if !ok {
		return 0
	}
	if price > pos.HighWater {
		pos.HighWater = price
		p.positions[pair] = pos
	}
	return pos.HighWater
}

// ApplyFill двигает закэшированный баланс до следующего Refresh, чтобы журнал видел итог сделки.
func (p *Portfolio) ApplyFill(fill models.Fill) {
	p.mu.Lock()
	defer p.mu.Unlock()
	notional := fill.Volume * fill.Price
	asset := helper.BaseAsset(fill.Pair)
	switch fill.Side {
	case models.SideBuy:
		p.balances[p.baseCurrency] -= notional
		p.balances[asset] += fill.Volume
	case models.SideSell:
		p.balances[p.baseCurrency] += notional
		p.balances[asset] -= fill.Volume
	}
	logger.Info("[PORTFOLIO] %s %s %.4f @ %.4f, %s=%.2f",
		fill.Pair, fill.Side, fill.Volume, fill.Price, p.baseCurrency, p.balances[p.baseCurrency])
}
