package indicators

import (
	"multisignal_bot/internal/modules/indicators/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("indicators",
		fx.Provide(
			service.NewEngine, // *service.Engine
		),
	)
}
