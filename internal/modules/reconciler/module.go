package reconciler

import (
	"context"

	ledgersvc "signal_bot/internal/modules/ledger/service"
	"signal_bot/internal/modules/reconciler/service"
	signalsvc "signal_bot/internal/modules/signal/service"
	subscription "signal_bot/internal/modules/subscription/service"
	telegramsvc "signal_bot/internal/modules/telegram_bot/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("reconciler",
		fx.Provide(
			service.NewMatcher,
			// adapt the concrete services onto the scheduler's ports
			func(l *ledgersvc.Ledger) service.Ledger { return l },
			func(s *subscription.Service) service.Subscriptions { return s },
			func(b *signalsvc.Builder) service.SignalSource { return b },
			func(n telegramsvc.Notifier) service.Notifier { return n },
			service.NewScheduler,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, s *service.Scheduler, ctx context.Context) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						go s.Run(ctx)
						return nil
					},
				})
			},
		),
	)
}
