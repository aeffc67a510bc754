package service

import (
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	"multisignal_bot/pkg/logger"
)

func NewCombiner(cfg config.StrategyConfig) Combiner {
	switch models.StrategyMode(cfg.Mode) {
	case models.StrategyBinary:
		logger.Info("[STRAT] combiner=binary primary=%s", cfg.PrimaryIndicator)
		return NewBinaryFusion(cfg)
	default:
		logger.Info("[STRAT] combiner=vote sentiment_weight=%.2f", cfg.VoteSentimentWeight)
		return NewWeightedVote(cfg)
	}
}
