package service

import (
	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	indicators "multisignal_bot/internal/modules/indicators/service"
)

// BinaryFusion: один выбранный индикатор (вес .6) плюс сентимент (вес .4) по шкале {1,.5,0,-.5,-1}.
type BinaryFusion struct {
	primary       string
	techWeight    float64
	sentWeight    float64
	buyThreshold  float64
	sellThreshold float64
	baseSize      float64
}

func NewBinaryFusion(cfg config.StrategyConfig) *BinaryFusion {
	return &BinaryFusion{
		primary:       cfg.PrimaryIndicator,
		techWeight:    cfg.TechnicalWeight,
		sentWeight:    cfg.SentimentWeight,
		buyThreshold:  cfg.BuyThreshold,
		sellThreshold: cfg.SellThreshold,
		baseSize:      cfg.BaseTradeSize,
	}
}

func (b *BinaryFusion) Name() models.StrategyMode { return models.StrategyBinary }

// sizeAdjustment: множитель базового размера по сигналу сентимента.
func sizeAdjustment(s models.Signal) float64 {
	switch s {
	case models.StrongBuy, models.StrongSell:
		return 1.5
	case models.Buy, models.Sell:
		return 1.0
	default:
		return 0
	}
}

func (b *BinaryFusion) Combine(pair string, tech indicators.Result, sent models.CompositeSentiment) models.Decision {
	primary, _ := tech.Get(b.primary)
	combined := b.techWeight*primary.Score() + b.sentWeight*sent.Signal.Score()

	action := models.ActionHold
	switch {
	case combined >= b.buyThreshold:
		action = models.ActionBuy
	case combined <= b.sellThreshold:
		action = models.ActionSell
	}

	var size float64
	if action != models.ActionHold {
		size = helper.Clamp01(b.baseSize * sizeAdjustment(sent.Signal) * sent.Confidence)
	}

	bd := breakdown(tech, func(n indicators.Named) float64 {
		if n.Name == b.primary {
			return b.techWeight
		}
		return 0
	})
	bd = append(bd, models.Contribution{
		Name:   sentimentName,
		Signal: sent.Signal,
		Weight: b.sentWeight,
		Value:  b.sentWeight * sent.Signal.Score(),
	})
	// для бинарной стратегии Value основного индикатора в шкале score
	for i := range bd {
		if bd[i].Name == b.primary {
			bd[i].Value = b.techWeight * bd[i].Signal.Score()
		}
	}

	return models.Decision{
		Pair:      pair,
		Action:    action,
		TradeSize: size,
		Score:     combined,
		Strategy:  models.StrategyBinary,
		Breakdown: bd,
	}
}
