package service

import (
	"context"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"
	"multisignal_bot/pkg/tracing"
)

// ClosePosition: Open -> Closing -> продажа всего объёма -> Idle.
// Если продажа не прошла, пара возвращается в Open.
func (m *Manager) ClosePosition(ctx context.Context, pair string, price float64, reason models.ExitReason) (models.Fill, error) {
	l := m.pairLock(pair)
	l.Lock()
	defer l.Unlock()
	return m.closeLocked(ctx, pair, price, reason)
}

func (m *Manager) closeLocked(ctx context.Context, pair string, price float64, reason models.ExitReason) (fill models.Fill, err error) {
	const op = "Manager.ClosePosition"
	span, ctx := tracing.StartSpan(ctx, op, map[string]any{"pair": pair, "reason": string(reason)})
	defer func() {
		tracing.MarkError(span, err)
		span.Finish()
	}()

	pos, ok := m.book.Position(pair)
	if !ok || m.State(pair) != models.StateOpen {
		return models.Fill{}, models.Errorf(models.KindValidation, op, "%s: no open position", pair)
	}
	if err = m.transition(pair, models.StateClosing); err != nil {
		return models.Fill{}, err
	}

	fill, err = m.gateway.Submit(ctx, models.Order{
		Pair:       pair,
		Side:       models.SideSell,
		Type:       models.OrderMarket,
		Volume:     pos.Amount,
		Price:      price,
		Leverage:   pos.Leverage,
		ReduceOnly: true,
	})
	if err != nil {
		_ = m.transition(pair, models.StateOpen)
		logger.Error("[RISK] %s exit (%s) failed: %v", pair, reason, err)
		m.notifier.Sendf("❌ [%s] выход (%s) не исполнен: %v", pair, reason, err)
		return models.Fill{}, err
	}

	if pos.StopOrderID != "" && !m.gateway.Cancel(ctx, pos.StopOrderID) {
		logger.Warn("[RISK] %s protective stop %s was not cancelled", pair, pos.StopOrderID)
	}

	m.book.ClosePosition(pair)
	m.book.ApplyFill(fill)
	m.AddDailyLoss(lossOf(pos, fill.Price, reason, m.cfg.StopLoss))
	_ = m.transition(pair, models.StateIdle)

	m.record(ctx, models.TradeRecord{
		Pair:             pair,
		Action:           models.ActionSell,
		Size:             fill.Volume,
		Price:            fill.Price,
		Reason:           string(reason),
		Time:             fill.FilledAt,
		ResultingBalance: m.book.TotalBalance(),
	})
	m.notifier.Sendf("%s [%s] SELL %.4f @ %.4f (%s)", exitIcon(reason), pair, fill.Volume, fill.Price, reason)
	return fill, nil
}

// lossOf: вклад выхода в дневной убыток, в единицах amount * доля.
// Stop-loss всегда amount * stopLoss, take-profit ноль, остальные по фактической цене ниже входа.
func lossOf(pos models.Position, exit float64, reason models.ExitReason, stopLoss float64) float64 {
	switch reason {
	case models.ExitStopLoss:
		return pos.Amount * stopLoss
	case models.ExitTakeProfit:
		return 0
	}
	if pos.EntryPrice <= 0 || exit <= 0 || exit >= pos.EntryPrice {
		return 0
	}
	return pos.Amount * (pos.EntryPrice - exit) / pos.EntryPrice
}

func exitIcon(r models.ExitReason) string {
	switch r {
	case models.ExitStopLoss:
		return "🛑"
	case models.ExitTakeProfit:
		return "💰"
	case models.ExitTrailing:
		return "🛡"
	default:
		return "🔴"
	}
}

// MonitorPositions проверяет SL/TP/трейлинг по каждой открытой позиции.
// Нет цены по паре: пишем в лог и идём дальше, состояние не меняется.
func (m *Manager) MonitorPositions(ctx context.Context) {
	for _, pos := range m.book.Positions() {
		if ctx.Err() != nil {
			return
		}
		m.monitorOne(ctx, pos.Pair)
	}
}

func (m *Manager) monitorOne(ctx context.Context, pair string) {
	l := m.pairLock(pair)
	l.Lock()
	defer l.Unlock()

	if m.State(pair) != models.StateOpen {
		return
	}
	pos, ok := m.book.Position(pair)
	if !ok {
		return
	}

	t, err := m.market.GetTicker(ctx, pair)
	if err != nil || t.LastPrice <= 0 {
		logger.Warn("[MONITOR] %s: no price, skipped: %v", pair, err)
		return
	}
	price := t.LastPrice
	hw := m.book.UpdateHighWater(pair, price)

	reason, hit := m.exitReason(pos, price, hw)
	if !hit {
		return
	}
	logger.Info("[MONITOR] %s %s: price=%.4f entry=%.4f", pair, reason, price, pos.EntryPrice)
	if _, err := m.closeLocked(ctx, pair, price, reason); err != nil {
		logger.Error("[MONITOR] %s close failed: %v", pair, err)
	}
}

func (m *Manager) exitReason(pos models.Position, price, highWater float64) (models.ExitReason, bool) {
	stopLoss := pos.EntryPrice * (1 - m.cfg.StopLoss)
	takeProfit := pos.EntryPrice * (1 + m.cfg.TakeProfit)
	switch {
	case price <= stopLoss:
		return models.ExitStopLoss, true
	case price >= takeProfit:
		return models.ExitTakeProfit, true
	case m.cfg.TrailingStop > 0 && highWater > pos.EntryPrice && price <= highWater*(1-m.cfg.TrailingStop):
		return models.ExitTrailing, true
	}
	return "", false
}
