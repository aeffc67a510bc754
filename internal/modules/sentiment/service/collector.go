package service

import (
	"context"
	"time"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Collector опрашивает все источники параллельно и ждёт каждого.
// Упавший источник даёт пустой вклад и не отменяет остальных.
type Collector struct {
	sources []models.SentimentSource
	scorer  models.TextScorer
	timeout time.Duration
}

func NewCollector(sources []models.SentimentSource, scorer models.TextScorer, timeout time.Duration) *Collector {
	return &Collector{sources: sources, scorer: scorer, timeout: timeout}
}

func (c *Collector) Collect(ctx context.Context) []models.SentimentItem {
	if len(c.sources) == 0 {
		return nil
	}

	results := make([][]models.SentimentItem, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		i, src := i, src
		g.Go(func() error {
			fctx := ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
			docs, err := src.Fetch(fctx)
			if err != nil {
				logger.Warn("[SENTIMENT] source %s failed: %v", src.Name(), err)
				return nil
			}
			results[i] = c.score(fctx, src.Name(), docs)
			return nil
		})
	}
	_ = g.Wait()

	var out []models.SentimentItem
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (c *Collector) score(ctx context.Context, source string, docs []models.RawDocument) []models.SentimentItem {
	items := make([]models.SentimentItem, 0, len(docs))
	for _, d := range docs {
		pol, conf := d.Polarity, d.Confidence
		if !d.Scored() {
			if c.scorer == nil || d.Text == "" {
				continue
			}
			var err error
			pol, conf, err = c.scorer.Score(ctx, d.Text)
			if err != nil {
				logger.Warn("[SENTIMENT] score %s: %v", source, err)
				continue
			}
		}
		src := d.Source
		if src == "" {
			src = source
		}
		items = append(items, models.SentimentItem{
			Source:     src,
			Kind:       d.Kind,
			Polarity:   pol,
			Confidence: helper.Clamp01(conf),
			Time:       d.Time,
		})
	}
	return items
}

// PolarityFromCompound: порог ±0.05 для compound-оценки, уверенность = |compound|.
func PolarityFromCompound(compound float64) (models.Polarity, float64) {
	conf := helper.Clamp01(abs(compound))
	switch {
	case compound >= 0.05:
		return models.Positive, conf
	case compound <= -0.05:
		return models.Negative, conf
	default:
		return models.Neutral, conf
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
