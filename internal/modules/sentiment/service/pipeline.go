package service

import (
	"context"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"
)

// Pipeline: сбор со всех источников и свёртка в один композитный сентимент на цикл.
type Pipeline struct {
	collector  *Collector
	aggregator *Aggregator
}

func NewPipeline(collector *Collector, aggregator *Aggregator) *Pipeline {
	return &Pipeline{collector: collector, aggregator: aggregator}
}

func (p *Pipeline) Run(ctx context.Context) models.CompositeSentiment {
	items := p.collector.Collect(ctx)
	cs := p.aggregator.Aggregate(items)
	logger.Info("[SENTIMENT] items=%d score=%.3f signal=%s conf=%.2f", len(items), cs.Score, cs.Signal, cs.Confidence)
	return cs
}
