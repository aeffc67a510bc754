package service

import (
	"multisignal_bot/internal/models"
	indicators "multisignal_bot/internal/modules/indicators/service"
)

// Combiner сводит технику и сентимент в одно решение. Входы не меняет, побочных эффектов нет.
type Combiner interface {
	Combine(pair string, tech indicators.Result, sent models.CompositeSentiment) models.Decision
	Name() models.StrategyMode
}

const sentimentName = "sentiment"

// breakdown: сырые сигналы всех индикаторов, weight(name) задаёт вес в текущей стратегии.
func breakdown(tech indicators.Result, weight func(n indicators.Named) float64) []models.Contribution {
	out := make([]models.Contribution, 0, len(tech.Signals)+1)
	for _, s := range tech.Signals {
		w := weight(s)
		out = append(out, models.Contribution{
			Name:   s.Name,
			Signal: s.Signal,
			Weight: w,
			Value:  w * s.Signal.Vote(),
		})
	}
	return out
}
