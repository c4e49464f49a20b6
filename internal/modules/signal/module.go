package signal

import (
	"context"
	"net/http"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/signal/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("signal",
		fx.Provide(
			func(cfg *config.Config) *service.TickerStream {
				if cfg.Signal.StreamPair == "" {
					return nil
				}
				return service.NewTickerStream(cfg.Signal.StreamPair)
			},
			func(cfg *config.Config, ticker *service.TickerStream) *service.Builder {
				client := &http.Client{Timeout: cfg.PollTimeout}
				kraken := service.NewKrakenClient(client)
				if ticker == nil {
					return service.NewBuilder(cfg, kraken, nil)
				}
				return service.NewBuilder(cfg, kraken, ticker)
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, ctx context.Context, ticker *service.TickerStream) {
				if ticker == nil {
					return
				}
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						go ticker.Start(ctx)
						return nil
					},
				})
			},
		),
	)
}
