package service

import (
	"sort"
	"strings"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
)

const (
	strongBuyLevel  = 0.7
	buyLevel        = 0.3
	sellLevel       = -0.3
	strongSellLevel = -0.7
)

// DefaultKindWeights: веса по типу источника, unknown для всего прочего.
func DefaultKindWeights() map[string]float64 {
	return map[string]float64{
		string(models.KindNews):   0.3,
		string(models.KindSocial): 0.25,
		string(models.KindExpert): 0.45,
		"unknown":                 0.1,
	}
}

type Aggregator struct {
	weights map[string]float64
}

func NewAggregator(weights map[string]float64) *Aggregator {
	w := DefaultKindWeights()
	for k, v := range weights {
		w[strings.ToLower(k)] = v
	}
	return &Aggregator{weights: w}
}

func (a *Aggregator) weight(kind models.SentimentKind) float64 {
	if w, ok := a.weights[strings.ToLower(string(kind))]; ok && kind != "" {
		return w
	}
	return a.weights["unknown"]
}

// Aggregate: score = Σ sign*confidence*kindWeight. Слагаемые сортируются перед суммой,
// поэтому результат не зависит от порядка элементов. Вход не меняется.
func (a *Aggregator) Aggregate(items []models.SentimentItem) models.CompositeSentiment {
	if len(items) == 0 {
		return models.CompositeSentiment{Signal: models.Hold}
	}

	terms := make([]float64, 0, len(items))
	var maxConf float64
	for _, it := range items {
		conf := helper.Clamp01(it.Confidence)
		terms = append(terms, it.Polarity.Sign()*conf*a.weight(it.Kind))
		if conf > maxConf {
			maxConf = conf
		}
	}
	sort.Float64s(terms)

	var score float64
	for _, t := range terms {
		score += t
	}

	cp := make([]models.SentimentItem, len(items))
	copy(cp, items)

	return models.CompositeSentiment{
		Score:      score,
		Signal:     SignalFromScore(score),
		Confidence: maxConf,
		Items:      cp,
	}
}

func SignalFromScore(score float64) models.Signal {
	switch {
	case score >= strongBuyLevel:
		return models.StrongBuy
	case score >= buyLevel:
		return models.Buy
	case score <= strongSellLevel:
		return models.StrongSell
	case score <= sellLevel:
		return models.Sell
	default:
		return models.Hold
	}
}
