package service

import (
	"context"
	"math"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"
	"multisignal_bot/pkg/tracing"
)

// OpenPosition проводит buy-решение через гейты и шлюз. При любом отказе пара остаётся Idle,
// портфель не трогается.
func (m *Manager) OpenPosition(ctx context.Context, d models.Decision, entryPrice float64) (pos models.Position, err error) {
	const op = "Manager.OpenPosition"
	span, ctx := tracing.StartSpan(ctx, op, map[string]any{"pair": d.Pair})
	defer func() {
		tracing.MarkError(span, err)
		span.Finish()
	}()

	l := m.pairLock(d.Pair)
	l.Lock()
	defer l.Unlock()

	if d.Action != models.ActionBuy {
		return models.Position{}, models.Errorf(models.KindValidation, op, "%s: action %s does not open", d.Pair, d.Action)
	}
	if m.Halted() {
		return models.Position{}, models.Errorf(models.KindValidation, op, "%s: trading halted for the day", d.Pair)
	}
	if d.TradeSize <= 0 {
		return models.Position{}, models.Errorf(models.KindValidation, op, "%s: zero trade size", d.Pair)
	}
	if !m.book.Known() {
		return models.Position{}, models.Errorf(models.KindConnectivity, op, "%s: balance unknown", d.Pair)
	}

	// trade_size: доля доступного капитала, режет риск-размер сверху
	units := m.SizePosition(entryPrice)
	if helper.Finite(entryPrice) && entryPrice > 0 {
		units = math.Min(units, helper.Clamp01(d.TradeSize)*m.book.AvailableBalance()/entryPrice)
	}
	if !m.validate(d.Pair, entryPrice, units) {
		return models.Position{}, models.Errorf(models.KindValidation, op, "%s: trade rejected", d.Pair)
	}
	if !m.CanOpenPosition(d.Pair, units*entryPrice) {
		return models.Position{}, models.Errorf(models.KindValidation, op, "%s: exposure limit", d.Pair)
	}

	if err = m.transition(d.Pair, models.StatePendingOpen); err != nil {
		return models.Position{}, err
	}

	lev := m.book.Leverage(d.Pair)
	order := models.Order{
		Pair:     d.Pair,
		Side:     models.SideBuy,
		Type:     models.OrderType(m.exec.OrderType),
		Volume:   units,
		Price:    entryPrice,
		Leverage: lev,
	}
	if order.Type == models.OrderLimit {
		order.Price = entryPrice * (1 + m.exec.LimitOffset)
	}

	fill, err := m.gateway.Submit(ctx, order)
	if err == nil {
		fill, err = m.gateway.AwaitFill(ctx, fill)
	}
	if err != nil {
		_ = m.transition(d.Pair, models.StateIdle)
		logger.Error("[RISK] %s entry failed: %v", d.Pair, err)
		if models.IsKind(err, models.KindFatalExecution) {
			m.notifier.Sendf("❌ [%s] вход не исполнен: %v", d.Pair, err)
		}
		return models.Position{}, err
	}

	pos = models.Position{
		Pair:       d.Pair,
		Amount:     fill.Volume,
		Leverage:   lev,
		EntryPrice: fill.Price,
		HighWater:  fill.Price,
		OpenedAt:   fill.FilledAt,
	}
	if m.cfg.ProtectiveStop {
		pos.StopOrderID = m.placeStop(ctx, pos)
	}

	if err = m.book.AddPosition(pos); err != nil {
		_ = m.transition(d.Pair, models.StateIdle)
		return models.Position{}, err
	}
	m.book.ApplyFill(fill)
	_ = m.transition(d.Pair, models.StateOpen)

	m.record(ctx, models.TradeRecord{
		Pair:             d.Pair,
		Action:           models.ActionBuy,
		Size:             fill.Volume,
		Price:            fill.Price,
		Reason:           string(d.Strategy),
		Time:             fill.FilledAt,
		ResultingBalance: m.book.TotalBalance(),
		Breakdown:        d.Breakdown,
	})
	m.notifier.Sendf("🟢 [%s] BUY %.4f @ %.4f lev=%dx score=%.2f",
		d.Pair, fill.Volume, fill.Price, lev, d.Score)

	pos.Status = models.PositionOpen
	return pos, nil
}

// placeStop: защитный stop-loss на бирже. Ошибка не отменяет вход, мониторинг всё равно следит за SL.
func (m *Manager) placeStop(ctx context.Context, pos models.Position) string {
	fill, err := m.gateway.Submit(ctx, models.Order{
		Pair:       pos.Pair,
		Side:       models.SideSell,
		Type:       models.OrderStopLoss,
		Volume:     pos.Amount,
		StopPrice:  pos.EntryPrice * (1 - m.cfg.StopLoss),
		Leverage:   pos.Leverage,
		ReduceOnly: true,
	})
	if err != nil {
		logger.Warn("[RISK] %s protective stop not placed: %v", pos.Pair, err)
		return ""
	}
	return fill.OrderID
}
