package service

import (
	"math"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	indicators "multisignal_bot/internal/modules/indicators/service"
)

const maxVote = 2.0

// WeightedVote: взвешенная сумма голосов {2,1,0,-1,-2} по всему каталогу.
// При sentimentWeight > 0 сентимент голосует наравне с индикаторами, веса техники масштабируются на (1-w).
type WeightedVote struct {
	sentimentWeight float64
	buyThreshold    float64
	sellThreshold   float64
}

func NewWeightedVote(cfg config.StrategyConfig) *WeightedVote {
	return &WeightedVote{
		sentimentWeight: cfg.VoteSentimentWeight,
		buyThreshold:    cfg.VoteBuyThreshold,
		sellThreshold:   cfg.VoteSellThreshold,
	}
}

func (v *WeightedVote) Name() models.StrategyMode { return models.StrategyVote }

func (v *WeightedVote) Combine(pair string, tech indicators.Result, sent models.CompositeSentiment) models.Decision {
	scale := 1 - v.sentimentWeight

	bd := breakdown(tech, func(n indicators.Named) float64 { return n.Weight * scale })
	if v.sentimentWeight > 0 {
		bd = append(bd, models.Contribution{
			Name:   sentimentName,
			Signal: sent.Signal,
			Weight: v.sentimentWeight,
			Value:  v.sentimentWeight * sent.Signal.Vote(),
		})
	}

	var sum float64
	for _, c := range bd {
		sum += c.Value
	}

	action := models.ActionHold
	switch {
	case sum > v.buyThreshold:
		action = models.ActionBuy
	case sum < v.sellThreshold:
		action = models.ActionSell
	}

	var size float64
	if action != models.ActionHold {
		size = helper.Clamp01(math.Abs(sum) / maxVote)
	}

	return models.Decision{
		Pair:      pair,
		Action:    action,
		TradeSize: size,
		Score:     sum,
		Strategy:  models.StrategyVote,
		Breakdown: bd,
	}
}
