package strategy

import (
	"multisignal_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewCombiner, // service.Combiner (binary | vote по конфигу)
		),
	)
}
