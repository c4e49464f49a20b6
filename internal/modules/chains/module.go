package chains

import (
	"net/http"
	"signal_bot/internal/modules/chains/service"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("chains",
		fx.Provide(
			func(cfg *config.Config) ([]service.Watcher, error) {
				client := &http.Client{Timeout: cfg.PollTimeout}

				watchers := make([]service.Watcher, 0, len(cfg.Chains))
				for _, c := range cfg.Chains {
					w, err := service.New(c, client)
					if err != nil {
						return nil, err
					}
					if !w.Enabled() {
						logger.Warn("chain %s disabled: deposit address or API key not configured", c.Name)
					}
					watchers = append(watchers, w)
				}
				return watchers, nil
			},
		),
	)
}
