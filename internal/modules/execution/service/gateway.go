package service

import (
	"context"
	"time"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	"multisignal_bot/pkg/logger"
	"multisignal_bot/pkg/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultAttempts = 3
	defaultFillPoll = time.Second
	defaultFillWait = 30 * time.Second
)

// Gateway: единственная точка, где ретраятся ордера.
type Gateway struct {
	orders     models.OrderCapability
	pacer      *Pacer
	attempts   int
	delay      time.Duration
	volumeStep float64
	fillWait   time.Duration
	fillPoll   time.Duration
	now        func() time.Time
}

func NewGateway(orders models.OrderCapability, pacer *Pacer, cfg config.ExecutionConfig) *Gateway {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	fillWait, fillPoll := cfg.FillTimeout, cfg.FillPoll
	if fillWait <= 0 {
		fillWait = defaultFillWait
	}
	if fillPoll <= 0 {
		fillPoll = defaultFillPoll
	}
	return &Gateway{
		orders:     orders,
		pacer:      pacer,
		attempts:   attempts,
		delay:      cfg.RetryDelay,
		volumeStep: cfg.VolumeStep,
		fillWait:   fillWait,
		fillPoll:   fillPoll,
		now:        time.Now,
	}
}

func (g *Gateway) Attempts() int { return g.attempts }

func validateOrder(o models.Order) error {
	const op = "Gateway.Submit"
	if o.Pair == "" {
		return models.Errorf(models.KindValidation, op, "empty pair")
	}
	if o.Side != models.SideBuy && o.Side != models.SideSell {
		return models.Errorf(models.KindValidation, op, "unknown side %q", o.Side)
	}
	if !helper.Finite(o.Volume) || o.Volume <= 0 {
		return models.Errorf(models.KindValidation, op, "volume must be positive, got %v", o.Volume)
	}
	switch o.Type {
	case models.OrderMarket:
	case models.OrderLimit:
		if o.Price <= 0 {
			return models.Errorf(models.KindValidation, op, "limit order needs a price")
		}
	case models.OrderStopLoss:
		if o.StopPrice <= 0 {
			return models.Errorf(models.KindValidation, op, "stop-loss order needs a stop price")
		}
	default:
		return models.Errorf(models.KindValidation, op, "unknown order type %q", o.Type)
	}
	return nil
}

// Submit: до attempts попыток с фиксированной паузой. Каждая неудача только логируется,
// после последней возвращается KindFatalExecution, и ордер считается неисполненным.
func (g *Gateway) Submit(ctx context.Context, o models.Order) (fill models.Fill, err error) {
	span, ctx := tracing.StartSpan(ctx, "Gateway.Submit", map[string]any{
		"pair": o.Pair, "side": string(o.Side), "type": string(o.Type),
	})
	defer func() {
		tracing.MarkError(span, err)
		span.Finish()
	}()

	if err = validateOrder(o); err != nil {
		return models.Fill{}, err
	}
	o.Volume = helper.RoundDownToStep(o.Volume, g.volumeStep)
	if o.Volume <= 0 {
		return models.Fill{}, models.Errorf(models.KindValidation, "Gateway.Submit", "volume below step %v", g.volumeStep)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err = g.pacer.Wait(ctx); err != nil {
			return models.Fill{}, models.NewError(models.KindFatalExecution, "Gateway.Submit", err)
		}

		id, perr := g.orders.PlaceOrder(ctx, o)
		if perr == nil {
			logger.Info("[EXEC] %s %s %s vol=%s id=%s attempt=%d",
				o.Pair, o.Side, o.Type, helper.FormatAmount(o.Volume, 8), id, attempt)
			return models.Fill{
				OrderID:  id,
				Pair:     o.Pair,
				Side:     o.Side,
				Type:     o.Type,
				Volume:   o.Volume,
				Price:    fillPrice(o),
				Attempts: attempt,
				FilledAt: g.now(),
			}, nil
		}

		lastErr = perr
		logger.Warn("[EXEC] %s %s attempt %d/%d failed: %v", o.Pair, o.Side, attempt, g.attempts, perr)
		if models.IsKind(perr, models.KindValidation) {
			break
		}
		if attempt < g.attempts && g.delay > 0 {
			select {
			case <-ctx.Done():
				return models.Fill{}, models.NewError(models.KindFatalExecution, "Gateway.Submit", ctx.Err())
			case <-time.After(g.delay):
			}
		}
	}

	return models.Fill{}, models.NewError(models.KindFatalExecution, "Gateway.Submit",
		errors.Wrapf(lastErr, "%s %s gave up", o.Pair, o.Side))
}

// fillPrice: биржа не возвращает цену исполнения синхронно, берём опорную цену ордера.
func fillPrice(o models.Order) float64 {
	if o.Type == models.OrderStopLoss {
		return o.StopPrice
	}
	return o.Price
}

// Cancel: одна попытка, любая ошибка превращается в false.
func (g *Gateway) Cancel(ctx context.Context, orderID string) bool {
	if orderID == "" {
		return false
	}
	if err := g.pacer.Wait(ctx); err != nil {
		return false
	}
	if err := g.orders.CancelOrder(ctx, orderID); err != nil {
		logger.Warn("[EXEC] cancel %s: %v", orderID, err)
		return false
	}
	return true
}

// AwaitFill: ждёт подтверждения исполнения limit-ордера. Market считается исполненным сразу.
// По таймауту остаток снимается; если не исполнилось ничего, это KindFatalExecution.
func (g *Gateway) AwaitFill(ctx context.Context, fill models.Fill) (out models.Fill, err error) {
	if fill.Type != models.OrderLimit {
		return fill, nil
	}
	span, ctx := tracing.StartSpan(ctx, "Gateway.AwaitFill", map[string]any{"order": fill.OrderID})
	defer func() {
		tracing.MarkError(span, err)
		span.Finish()
	}()

	deadline := g.now().Add(g.fillWait)
	var st models.OrderState
	for {
		st, err = g.orderState(ctx, fill.OrderID)
		if err == nil && st.Done() {
			break
		}
		if !g.now().Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			deadline = g.now()
		case <-time.After(g.fillPoll):
		}
	}

	if !st.Done() {
		if g.Cancel(ctx, fill.OrderID) {
			logger.Info("[EXEC] %s limit %s not filled in %s, cancelled", fill.Pair, fill.OrderID, g.fillWait)
		}
		if last, qerr := g.orderState(ctx, fill.OrderID); qerr == nil {
			st = last
		}
	}

	if st.Filled <= 0 {
		return models.Fill{}, models.Errorf(models.KindFatalExecution, "Gateway.AwaitFill",
			"%s limit %s not filled (status %s)", fill.Pair, fill.OrderID, st.Status)
	}
	fill.Volume = st.Filled
	if st.AvgPrice > 0 {
		fill.Price = st.AvgPrice
	}
	fill.FilledAt = g.now()
	return fill, nil
}

func (g *Gateway) orderState(ctx context.Context, id string) (models.OrderState, error) {
	if err := g.pacer.Wait(ctx); err != nil {
		return models.OrderState{}, err
	}
	st, err := g.orders.GetOrder(ctx, id)
	if err != nil {
		logger.Warn("[EXEC] order %s status: %v", id, err)
	}
	return st, err
}
