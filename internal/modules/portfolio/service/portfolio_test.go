package service

import (
	"context"
	"errors"
	"testing"

	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccount struct {
	bal map[string]float64
	err error
}

func (s *stubAccount) GetBalance(context.Context) (map[string]float64, error) { return s.bal, s.err }

func newTestPortfolio(acc models.AccountCapability) *Portfolio {
	return NewPortfolio(acc,
		config.TradingConfig{BaseCurrency: "USD"},
		config.RiskConfig{Reserve: 0.1, Leverage: map[string]int{"ada": 4, "LTC": 3}},
	)
}

func TestAvailableExcludesReserve(t *testing.T) {
	p := newTestPortfolio(&stubAccount{bal: map[string]float64{"usd": 10000}})
	require.NoError(t, p.Refresh(context.Background()))

	assert.True(t, p.Known())
	assert.Equal(t, 10000.0, p.TotalBalance())
	assert.InDelta(t, 9000, p.AvailableBalance(), 1e-9)
	assert.InDelta(t, 10, p.Exposure(900), 1e-9)
}

func TestRefreshFailureMarksUnknown(t *testing.T) {
	acc := &stubAccount{bal: map[string]float64{"USD": 100}}
	p := newTestPortfolio(acc)
	require.NoError(t, p.Refresh(context.Background()))

	acc.err = errors.New("dial tcp: timeout")
	err := p.Refresh(context.Background())
	assert.True(t, models.IsKind(err, models.KindConnectivity))
	assert.False(t, p.Known())
	assert.Equal(t, 100.0, p.TotalBalance())
}

func TestLeverageLookup(t *testing.T) {
	p := newTestPortfolio(&stubAccount{})
	assert.Equal(t, 4, p.Leverage("ADA/USD"))
	assert.Equal(t, 3, p.Leverage("ltc/usd"))
	assert.Equal(t, 1, p.Leverage("DOT/USD"))
}

func TestPositionsLifecycle(t *testing.T) {
	p := newTestPortfolio(&stubAccount{})

	require.NoError(t, p.AddPosition(models.Position{Pair: "LTC/USD", Amount: 2, EntryPrice: 100}))
	require.NoError(t, p.AddPosition(models.Position{Pair: "ADA/USD", Amount: 100, EntryPrice: 1.5}))
	err := p.AddPosition(models.Position{Pair: "ADA/USD", Amount: 1, EntryPrice: 1})
	assert.True(t, models.IsKind(err, models.KindValidation))

	assert.Equal(t, 2, p.Count())
	assert.InDelta(t, 350, p.OpenNotional(), 1e-9)

	list := p.Positions()
	require.Len(t, list, 2)
	assert.Equal(t, "ADA/USD", list[0].Pair)
	assert.Equal(t, models.PositionOpen, list[0].Status)

	assert.Equal(t, 1.6, p.UpdateHighWater("ADA/USD", 1.6))
	assert.Equal(t, 1.6, p.UpdateHighWater("ADA/USD", 1.55))

	pos, ok := p.ClosePosition("ADA/USD")
	require.True(t, ok)
	assert.Equal(t, models.PositionClosed, pos.Status)
	_, ok = p.ClosePosition("ADA/USD")
	assert.False(t, ok)
	assert.Equal(t, 1, p.Count())
}

func TestApplyFillMovesCachedBalance(t *testing.T) {
	p := newTestPortfolio(&stubAccount{bal: map[string]float64{"USD": 1000}})
	require.NoError(t, p.Refresh(context.Background()))

	p.ApplyFill(models.Fill{Pair: "ADA/USD", Side: models.SideBuy, Volume: 100, Price: 2})
	assert.InDelta(t, 800, p.TotalBalance(), 1e-9)
	assert.InDelta(t, 100, p.Balances()["ADA"], 1e-9)

	p.ApplyFill(models.Fill{Pair: "ADA/USD", Side: models.SideSell, Volume: 100, Price: 2.5})
	assert.InDelta(t, 1050, p.TotalBalance(), 1e-9)
}
