package subscription

import (
	"signal_bot/internal/modules/subscription/service"
	"signal_bot/internal/modules/subscription/service/pg"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("subscription",
		fx.Provide(
			pg.NewStore,
			func(s *pg.Store) service.Store { return s },
			service.NewService,
		),
	)
}
