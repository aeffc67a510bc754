package sentiment

import (
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	"multisignal_bot/internal/modules/sentiment/service"

	"go.uber.org/fx"
)

func newSources(cfg config.SentimentConfig) []models.SentimentSource {
	out := make([]models.SentimentSource, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		out = append(out, service.NewHTTPSource(s.Name, s.URL, models.SentimentKind(s.Kind), cfg.Timeout))
	}
	return out
}

// Без scorer_url документы без оценки просто отбрасываются.
func newScorer(cfg config.SentimentConfig) models.TextScorer {
	if cfg.ScorerURL == "" {
		return nil
	}
	return service.NewHTTPScorer(cfg.ScorerURL, cfg.Timeout)
}

func Module() fx.Option {
	return fx.Module("sentiment",
		fx.Provide(
			newSources,
			newScorer,
			func(cfg config.SentimentConfig) *service.Aggregator {
				return service.NewAggregator(cfg.KindWeights)
			},
			func(cfg config.SentimentConfig, sources []models.SentimentSource, scorer models.TextScorer) *service.Collector {
				return service.NewCollector(sources, scorer, cfg.Timeout)
			},
			service.NewPipeline,
		),
	)
}
