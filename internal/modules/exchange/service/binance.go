package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"

	"github.com/adshao/go-binance/v2/futures"
)

// Binance: USDT-M фьючерсы как Account/MarketData/Order capability.
// Пара "ADA/USD" -> символ "ADAUSDT" (base currency подменяется на quote asset биржи).
type Binance struct {
	client       *futures.Client
	baseCurrency string
	quoteAsset   string

	mu       sync.Mutex
	leverage map[string]int // что уже выставлено по символу
}

func NewBinance(apiKey, secretKey, baseCurrency, quoteAsset string) *Binance {
	c := futures.NewClient(apiKey, secretKey)
	c.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Binance{
		client:       c,
		baseCurrency: strings.ToUpper(baseCurrency),
		quoteAsset:   strings.ToUpper(quoteAsset),
		leverage:     make(map[string]int),
	}
}

func (b *Binance) Symbol(pair string) string {
	base, quote := helper.SplitPair(pair)
	if quote == "" || quote == b.baseCurrency {
		quote = b.quoteAsset
	}
	return base + quote
}

func connErr(op string, err error) error {
	return models.NewError(models.KindConnectivity, op, err)
}

// GetBalance: quote asset биржи (USDT) отдаём под именем base currency (USD), чтобы портфель его нашёл.
func (b *Binance) GetBalance(ctx context.Context) (map[string]float64, error) {
	res, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, connErr("Binance.GetBalance", err)
	}
	out := make(map[string]float64, len(res))
	for _, bal := range res {
		v, err := strconv.ParseFloat(bal.Balance, 64)
		if err != nil {
			continue
		}
		asset := strings.ToUpper(bal.Asset)
		if asset == b.quoteAsset {
			asset = b.baseCurrency
		}
		out[asset] += v
	}
	return out, nil
}

func (b *Binance) GetTicker(ctx context.Context, pair string) (models.Ticker, error) {
	sym := b.Symbol(pair)
	res, err := b.client.NewListPricesService().Symbol(sym).Do(ctx)
	if err != nil {
		return models.Ticker{}, connErr("Binance.GetTicker", err)
	}
	for _, p := range res {
		if p.Symbol != sym {
			continue
		}
		px, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return models.Ticker{}, connErr("Binance.GetTicker", err)
		}
		return models.Ticker{Pair: pair, LastPrice: px, Time: time.Now()}, nil
	}
	return models.Ticker{}, connErr("Binance.GetTicker", fmt.Errorf("no price for %s", sym))
}

func (b *Binance) GetOHLC(ctx context.Context, pair, interval string, limit int) ([]models.Bar, error) {
	svc := b.client.NewKlinesService().Symbol(b.Symbol(pair)).Interval(interval)
	if limit > 0 {
		svc = svc.Limit(limit)
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, connErr("Binance.GetOHLC", err)
	}
	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, models.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   parseFloat(k.Open),
			High:   parseFloat(k.High),
			Low:    parseFloat(k.Low),
			Close:  parseFloat(k.Close),
			Volume: parseFloat(k.Volume),
		})
	}
	return bars, nil
}

func (b *Binance) ensureLeverage(ctx context.Context, sym string, lev int) error {
	if lev <= 0 {
		return nil
	}
	b.mu.Lock()
	cur := b.leverage[sym]
	b.mu.Unlock()
	if cur == lev {
		return nil
	}
	if _, err := b.client.NewChangeLeverageService().Symbol(sym).Leverage(lev).Do(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	b.leverage[sym] = lev
	b.mu.Unlock()
	logger.Info("[EXCH] %s leverage set to %dx", sym, lev)
	return nil
}

// PlaceOrder возвращает id вида "SYMBOL:orderId", его же ждёт CancelOrder.
func (b *Binance) PlaceOrder(ctx context.Context, o models.Order) (id string, err error) {
	defer func() {
		if err != nil {
			err = connErr("Binance.PlaceOrder", err)
		}
	}()

	sym := b.Symbol(o.Pair)
	if !o.ReduceOnly {
		if err = b.ensureLeverage(ctx, sym, o.Leverage); err != nil {
			return "", fmt.Errorf("leverage: %w", err)
		}
	}

	side := futures.SideTypeBuy
	if o.Side == models.SideSell {
		side = futures.SideTypeSell
	}

	svc := b.client.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Quantity(helper.FormatAmount(o.Volume, 8))
	if o.ID != "" {
		svc = svc.NewClientOrderID(o.ID)
	}
	if o.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}

	switch o.Type {
	case models.OrderLimit:
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(helper.FormatAmount(o.Price, 8))
	case models.OrderStopLoss:
		svc = svc.Type(futures.OrderTypeStopMarket).
			StopPrice(helper.FormatAmount(o.StopPrice, 8))
	default:
		svc = svc.Type(futures.OrderTypeMarket)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return "", err
	}
	return sym + ":" + strconv.FormatInt(res.OrderID, 10), nil
}

func (b *Binance) CancelOrder(ctx context.Context, orderID string) error {
	sym, id, err := splitOrderID(orderID)
	if err != nil {
		return models.NewError(models.KindValidation, "Binance.CancelOrder", err)
	}
	if _, err := b.client.NewCancelOrderService().Symbol(sym).OrderID(id).Do(ctx); err != nil {
		return connErr("Binance.CancelOrder", err)
	}
	return nil
}

func (b *Binance) GetOrder(ctx context.Context, orderID string) (models.OrderState, error) {
	sym, id, err := splitOrderID(orderID)
	if err != nil {
		return models.OrderState{}, models.NewError(models.KindValidation, "Binance.GetOrder", err)
	}
	res, err := b.client.NewGetOrderService().Symbol(sym).OrderID(id).Do(ctx)
	if err != nil {
		return models.OrderState{}, connErr("Binance.GetOrder", err)
	}
	st := models.OrderState{
		ID:       orderID,
		Filled:   parseFloat(res.ExecutedQuantity),
		AvgPrice: parseFloat(res.AvgPrice),
	}
	switch res.Status {
	case futures.OrderStatusTypeFilled:
		st.Status = models.OrderFilled
	case futures.OrderStatusTypePartiallyFilled:
		st.Status = models.OrderPartial
	case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeRejected, futures.OrderStatusTypeExpired:
		st.Status = models.OrderCanceled
	default:
		st.Status = models.OrderNew
	}
	return st, nil
}

func splitOrderID(orderID string) (string, int64, error) {
	sym, raw, ok := strings.Cut(orderID, ":")
	if !ok {
		return "", 0, fmt.Errorf("bad order id %q", orderID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, err
	}
	return sym, id, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
